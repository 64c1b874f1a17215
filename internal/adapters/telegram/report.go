package telegram

import (
	"fmt"
	"strings"
	"time"
)

// DashboardStats is the sales snapshot included in a stock report.
type DashboardStats struct {
	TodaySales    int `json:"todaySales"`
	MonthSales    int `json:"monthSales"`
	TotalSales    int `json:"totalSales"`
	ExpiringCount int `json:"expiringCount"`
}

// MainEmailStats summarizes stock capacity per main email.
type MainEmailStats struct {
	TotalStock          int             `json:"totalStock"`
	TotalSold           int             `json:"totalSold"`
	TotalAvailableSlots int             `json:"totalAvailableSlots"`
	TotalMainEmails     int             `json:"totalMainEmails"`
	FullMainEmails      int             `json:"fullMainEmails"`
	MainEmails          []MainEmailLine `json:"mainEmails"`
}

// MainEmailLine is one main email's capacity row.
type MainEmailLine struct {
	Email     string `json:"email"`
	Used      int    `json:"used"`
	Capacity  int    `json:"capacity"`
	Available int    `json:"available"`
	IsFull    bool   `json:"isFull"`
}

// reportTimezone is the merchant's local timezone for report headers.
var reportTimezone = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// BuildStockReport renders the HTML stock report message: sales figures,
// stock totals, and a capacity line per main email.
func BuildStockReport(emails MainEmailStats, dashboard DashboardStats, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 <b>ULTRA Stock Report</b>\n")
	fmt.Fprintf(&b, "🕐 %s\n\n", now.In(reportTimezone).Format("02/01/2006 15:04"))

	fmt.Fprintf(&b, "📈 <b>Sales</b>\n")
	fmt.Fprintf(&b, "• Today: %d\n", dashboard.TodaySales)
	fmt.Fprintf(&b, "• This month: %d\n", dashboard.MonthSales)
	fmt.Fprintf(&b, "• All time: %d\n\n", dashboard.TotalSales)

	fmt.Fprintf(&b, "📦 <b>Stock</b>\n")
	fmt.Fprintf(&b, "• Available: %d\n", emails.TotalStock)
	fmt.Fprintf(&b, "• Sold: %d\n", emails.TotalSold)
	fmt.Fprintf(&b, "• Free slots: %d\n\n", emails.TotalAvailableSlots)

	fmt.Fprintf(&b, "📧 <b>Main emails (%d)</b>\n", emails.TotalMainEmails)
	if emails.FullMainEmails > 0 {
		fmt.Fprintf(&b, "🔴 Full: %d\n", emails.FullMainEmails)
	}

	for _, m := range emails.MainEmails {
		fmt.Fprintf(&b, "%s %s : %d/%d (free %d)\n",
			capacityBadge(m), maskEmail(m.Email), m.Used, m.Capacity, m.Available)
	}

	if dashboard.ExpiringCount > 0 {
		fmt.Fprintf(&b, "\n⏰ <b>Expiring soon:</b> %d orders", dashboard.ExpiringCount)
	}

	return b.String()
}

func capacityBadge(m MainEmailLine) string {
	switch {
	case m.IsFull:
		return "🔴"
	case m.Available <= 10:
		return "🟠"
	default:
		return "🟢"
	}
}

// maskEmail keeps the local part and hides the domain.
func maskEmail(email string) string {
	if at := strings.Index(email, "@"); at >= 0 {
		return email[:at] + "@..."
	}
	return email
}
