package helpers

import (
	"context"
	"fmt"
	"strings"
	"time"

	mailtpl "github.com/oksasatya/prevently-api/pkg/mailer/templates"
)

// LocalizeTimesIfPossible rewrites the display Time into the timezone of the request IP.
func LocalizeTimesIfPossible(ctx context.Context, resolver mailtpl.GeoResolver, data map[string]any) {
	ipVal, ok := data["IP"]
	if !ok || fmt.Sprintf("%v", ipVal) == "" {
		return
	}
	v, ok := data["TimeAt"]
	if !ok {
		return
	}
	t, ok := parseTimeAny(v)
	if !ok || t.IsZero() {
		return
	}
	g, err := resolver.Lookup(ctx, fmt.Sprintf("%v", ipVal))
	if err != nil || strings.TrimSpace(g.Timezone) == "" {
		return
	}
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return
	}
	data["Time"] = t.In(loc).Format("02 January 2006, 15:04 MST")
	if l, ok := data["Location"]; !ok || fmt.Sprintf("%v", l) == "" {
		data["Location"] = mailtpl.FormatGeo(g)
	}
}

func parseTimeAny(v any) (time.Time, bool) {
	s := fmt.Sprintf("%v", v)
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05 -0700 MST",
		"2006-01-02 15:04:05 -0700",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
