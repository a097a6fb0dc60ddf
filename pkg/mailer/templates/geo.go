package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// ErrNonPublicIP is returned for loopback, private and unparsable addresses. No lookup is made for them.
var ErrNonPublicIP = errors.New("ip is not publicly routable")

// Geo is the location shown in security emails (login from a new place, password changed).
type Geo struct {
	City     string
	Region   string // state/province
	Country  string
	Timezone string
}

type GeoResolver interface {
	Lookup(ctx context.Context, ip string) (Geo, error)
}

func FormatGeo(g Geo) string {
	var parts []string
	for _, s := range []string{g.City, g.Region, g.Country} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

const ipAPIBase = "http://ip-api.com/json/"

// IPAPIResolver resolves public addresses through ip-api.com.
type IPAPIResolver struct {
	Client  *http.Client
	BaseURL string
}

func publicIP(raw string) (net.IP, bool) {
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
		return nil, false
	}
	return ip, true
}

func (r IPAPIResolver) Lookup(ctx context.Context, raw string) (Geo, error) {
	ip, ok := publicIP(raw)
	if !ok {
		return Geo{}, ErrNonPublicIP
	}
	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}
	base := r.BaseURL
	if base == "" {
		base = ipAPIBase
	}

	url := base + ip.String() + "?fields=status,message,country,regionName,city,timezone"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Geo{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Geo{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return Geo{}, fmt.Errorf("geo lookup: status %d", resp.StatusCode)
	}

	var body struct {
		Status     string `json:"status"`
		Message    string `json:"message"`
		Country    string `json:"country"`
		RegionName string `json:"regionName"`
		City       string `json:"city"`
		Timezone   string `json:"timezone"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Geo{}, err
	}
	if !strings.EqualFold(body.Status, "success") {
		return Geo{}, fmt.Errorf("geo lookup failed: %s", body.Message)
	}
	return Geo{City: body.City, Region: body.RegionName, Country: body.Country, Timezone: body.Timezone}, nil
}
