package atmos

import (
	"fmt"
	"time"
)

// billingPeriodCurrent selects the unbilled period on the usage download
// endpoint.
const billingPeriodCurrent = "Current"

// nonceLayout is the cache-busting token the portal's own frontend appends
// to download links, e.g. "1210202515:30:45".
const nonceLayout = "0102200615:04:05"

// BillingPeriod returns the period selector the portal expects: "Current"
// for monthsAgo == 0, otherwise "<MonthName>,<Year>" for the calendar month
// exactly monthsAgo months before now.
func BillingPeriod(now time.Time, monthsAgo int) string {
	if monthsAgo == 0 {
		return billingPeriodCurrent
	}

	// anchor on the first of the month so subtracting from a 31st cannot
	// normalize into the wrong month
	anchor := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	past := anchor.AddDate(0, -monthsAgo, 0)
	return fmt.Sprintf("%s,%d", past.Month().String(), past.Year())
}

// DownloadURL builds the daily usage download link for a billing period.
// The period is deliberately not percent-escaped (the portal expects the
// raw comma) and the trailing token is a timestamp of the moment the URL
// is built, there purely to defeat caching.
func DownloadURL(billingPeriod string, now time.Time) string {
	return fmt.Sprintf(
		"%s?&billingPeriod=%s&%s",
		dailyUsagePath,
		billingPeriod,
		now.Format(nonceLayout),
	)
}
