// Package ntp asks NTP servers how far the local clock is off.
package ntp

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

const (
	ntpPacketSize = 48
	defaultPort   = "123"
	// seconds between the NTP era (1900) and the Unix epoch
	seventyYears = 2208988800
)

var (
	ErrShortPacket = errors.New("ntp: short packet")
	ErrNoTime      = errors.New("ntp: server sent no transmit time")
	ErrNotServer   = errors.New("ntp: reply is not in server mode")
	ErrKissOfDeath = errors.New("ntp: kiss of death")
)

// Querier returns the offset that, added to the local clock, gives the server's time.
type Querier interface {
	Query(server string) (time.Duration, error)
}

// SNTP is a minimal client that trusts the transmit timestamp of a single response. It runs anywhere the net package
// can dial UDP, including TinyGo boards with a netlink device.
type SNTP struct {
	Timeout time.Duration

	dial func(network, address string) (net.Conn, error)
	now  func() time.Time
}

func NewSNTP(timeout time.Duration) *SNTP {
	return &SNTP{Timeout: timeout, dial: net.Dial, now: time.Now}
}

func (s *SNTP) Query(server string) (time.Duration, error) {
	conn, err := s.dial("udp", hostPort(server))
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	if s.Timeout > 0 {
		_ = conn.SetDeadline(s.now().Add(s.Timeout))
	}

	sent := s.now()
	t, err := getCurrentTime(conn)
	if err != nil {
		return 0, fmt.Errorf("query %s: %w", server, err)
	}
	recv := s.now()

	// assume the server stamped its reply halfway through the round trip
	return t.Sub(sent.Add(recv.Sub(sent) / 2)), nil
}

func hostPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(server, defaultPort)
}

func getCurrentTime(conn net.Conn) (time.Time, error) {
	if err := sendNTPpacket(conn); err != nil {
		return time.Time{}, err
	}

	response := make([]byte, ntpPacketSize)
	n, err := conn.Read(response)
	if err != nil && err != io.EOF {
		return time.Time{}, err
	}
	if n != ntpPacketSize {
		return time.Time{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrShortPacket, ntpPacketSize, n)
	}

	return parseNTPPacket(response)
}

func sendNTPpacket(conn net.Conn) error {
	var request = [ntpPacketSize]byte{
		0xe3, // LI unknown, version 4, mode 3 (client)
		0,    // stratum
		6,    // polling interval
		0xec, // precision
	}

	_, err := conn.Write(request[:])
	return err
}

func parseNTPPacket(r []byte) (time.Time, error) {
	if mode := r[0] & 7; mode != 4 {
		return time.Time{}, fmt.Errorf("%w: mode %d", ErrNotServer, mode)
	}
	if r[1] == 0 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrKissOfDeath, r[12:16])
	}
	// the transmit timestamp starts at byte 40: four bytes of seconds since 1900, four bytes of fraction
	secs := uint32(r[40])<<24 | uint32(r[41])<<16 | uint32(r[42])<<8 | uint32(r[43])
	frac := uint32(r[44])<<24 | uint32(r[45])<<16 | uint32(r[46])<<8 | uint32(r[47])
	if secs == 0 && frac == 0 {
		return time.Time{}, ErrNoTime
	}
	nanos := (uint64(frac) * uint64(time.Second)) >> 32
	return time.Unix(int64(secs)-seventyYears, int64(nanos)), nil
}
