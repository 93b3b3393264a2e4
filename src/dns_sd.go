package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:   	Announce the TCP output service using DNS-SD
 *
 * Description:
 *
 *     Nobody wants to type in IP addresses and ports for a receiver
 *     on the same network.  Clients can find us by service type.
 *
 *     This uses the pure-Go github.com/brutella/dnssd package for
 *     mDNS/DNS-SD service announcement without requiring any system
 *     daemon or C library dependencies.
 */

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/brutella/dnssd"
)

const DNS_SD_SERVICE = "_vdl2._tcp"

/* Get a default service name to publish. By default,
 * "Husky on <hostname>", or just "Husky" if hostname cannot
 * be obtained.
 */
func dns_sd_default_service_name() string {
	var hostname, hostnameErr = os.Hostname()
	if hostnameErr != nil {
		return "Husky"
	}

	// on some systems, an FQDN is returned; remove domain part
	hostname, _, _ = strings.Cut(hostname, ".")

	return "Husky on " + hostname
}

/*-------------------------------------------------------------------
 *
 * Name:        dns_sd_announce
 *
 * Purpose:     Announce a TCP output port until ctx is done.
 *
 * Inputs:	name	- Service name.  Empty for the default.
 *		port	- TCP port clients should connect to.
 *		format	- "text" or "json", published in the TXT record
 *			  so a client knows how to split the stream.
 *
 *--------------------------------------------------------------------*/

func dns_sd_announce(ctx context.Context, name string, port int, format string) error {
	if name == "" {
		name = dns_sd_default_service_name()
	}

	var cfg = dnssd.Config{ //nolint:exhaustruct
		Name: name,
		Type: DNS_SD_SERVICE,
		Port: port,
		Text: map[string]string{"format": format, "version": version_string()},
	}

	var sv, svErr = dnssd.NewService(cfg)
	if svErr != nil {
		return fmt.Errorf("DNS-SD: failed to create service: %w", svErr)
	}

	var rp, rpErr = dnssd.NewResponder()
	if rpErr != nil {
		return fmt.Errorf("DNS-SD: failed to create responder: %w", rpErr)
	}

	if _, addErr := rp.Add(sv); addErr != nil {
		return fmt.Errorf("DNS-SD: failed to add service: %w", addErr)
	}

	logger.Info("DNS-SD: Announcing", "service", DNS_SD_SERVICE, "port", port, "name", name, "format", format)

	go func() {
		var respondErr = rp.Respond(ctx)
		if respondErr != nil && ctx.Err() == nil {
			logger.Error("DNS-SD: Responder error", "err", respondErr)
		}
	}()

	return nil
}
