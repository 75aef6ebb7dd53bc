// Package discovery announces the API on the local network so tablets and
// kitchen displays can find it without configuration.
package discovery

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"
)

const (
	ServiceType = "_cafepos._tcp"
	Domain      = "local."
)

// Announce registers the service and keeps it registered until ctx is done.
func Announce(ctx context.Context, instance, port, version string) error {
	p, err := ParsePort(port)
	if err != nil {
		return err
	}

	server, err := zeroconf.Register(instance, ServiceType, Domain, p, TXT(version), nil)
	if err != nil {
		return fmt.Errorf("mdns register: %w", err)
	}
	zap.L().Info("mdns service announced",
		zap.String("instance", instance), zap.String("type", ServiceType), zap.Int("port", p))

	<-ctx.Done()
	server.Shutdown()
	return nil
}

// ParsePort accepts "8081" or ":8081".
func ParsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimPrefix(s, ":"))
	if err != nil || p <= 0 || p > 65535 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return p, nil
}

// TXT builds the TXT records clients use to check compatibility.
func TXT(version string) []string {
	return []string{"version=" + version, "api=/restaurants", "ws=/ws/restaurants"}
}
