package alert

import (
	"fmt"
	"strings"

	"aq-backend/internal/models"
)

// formatSensorAlert renders a threshold alert, one field per line
func formatSensorAlert(title string, r models.Reading, aiLabel string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ALERT: %s\n", title)
	fmt.Fprintf(&b, "mq2=%.0f\n", r.MQ2)
	fmt.Fprintf(&b, "mq135=%.0f\n", r.MQ135)
	fmt.Fprintf(&b, "temp_c=%.1f\n", r.TempC)
	fmt.Fprintf(&b, "hum_pct=%.1f\n", r.HumPct)
	if aiLabel != "" {
		fmt.Fprintf(&b, "ai=%s\n", aiLabel)
	}
	return b.String()
}

// formatAIAlert renders the classifier alert on a single data line
func formatAIAlert(r models.Reading) string {
	return fmt.Sprintf("ALERT: AI PREDICTS BAD AIR QUALITY\nmq2=%.0f, mq135=%.0f, temp_c=%.1f, hum_pct=%.1f\n",
		r.MQ2, r.MQ135, r.TempC, r.HumPct)
}
