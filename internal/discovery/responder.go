// Package discovery answers lobby probes sent to a UDP multicast group.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/ipv4"
)

const DefaultGroup = "224.1.1.1"

// Listen opens a UDP socket on port and joins group on every multicast
// capable interface.
func Listen(port int, group string) (net.PacketConn, error) {
	ip := net.ParseIP(group)
	if ip == nil || !ip.IsMulticast() {
		return nil, fmt.Errorf("bad multicast group %q", group)
	}
	c, err := net.ListenPacket("udp4", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return nil, fmt.Errorf("listen udp: %w", err)
	}
	p := ipv4.NewPacketConn(c)
	gaddr := &net.UDPAddr{IP: ip}

	joined := 0
	ifaces, _ := net.Interfaces()
	for i := range ifaces {
		ifi := &ifaces[i]
		if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagMulticast == 0 {
			continue
		}
		if err := p.JoinGroup(ifi, gaddr); err != nil {
			log.Debug().Err(err).Str("module", "discovery").Str("iface", ifi.Name).Msg("join group")
			continue
		}
		joined++
	}
	if joined == 0 {
		if err := p.JoinGroup(nil, gaddr); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("join %s: %w", group, err)
		}
	}
	if err := p.SetMulticastTTL(128); err != nil {
		log.Debug().Err(err).Str("module", "discovery").Msg("set ttl")
	}
	log.Info().Str("module", "discovery").Int("port", port).Str("group", group).Msg("multicast responder listening")
	return c, nil
}

// Serve replies to every datagram on conn with the lobby title until ctx is
// done. It closes conn on return.
func Serve(ctx context.Context, conn net.PacketConn, title string) error {
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	defer conn.Close()

	reply := []byte(title)
	buf := make([]byte, 1500)
	for {
		_, src, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read probe: %w", err)
		}
		if _, err := conn.WriteTo(reply, src); err != nil {
			log.Warn().Err(err).Str("module", "discovery").Str("to", src.String()).Msg("reply failed")
		}
	}
}
