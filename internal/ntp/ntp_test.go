package ntp

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func packetAt(t time.Time) []byte {
	p := make([]byte, ntpPacketSize)
	p[0] = 0x24 // version 4, mode 4 (server)
	p[1] = 2    // stratum
	secs := uint32(t.Unix() + seventyYears)
	frac := uint32((uint64(t.Nanosecond()) << 32) / uint64(time.Second))
	for i := 0; i < 4; i++ {
		p[40+i] = byte(secs >> (24 - 8*i))
		p[44+i] = byte(frac >> (24 - 8*i))
	}
	return p
}

// fakeServer answers one request on the server side of a pipe.
func fakeServer(t *testing.T, reply []byte) net.Conn {
	client, server := net.Pipe()
	go func() {
		defer server.Close()
		req := make([]byte, ntpPacketSize)
		if _, err := server.Read(req); err != nil {
			return
		}
		if req[0] != 0xe3 {
			t.Errorf("request header = %#x", req[0])
			return
		}
		_, _ = server.Write(reply)
	}()
	return client
}

func TestParseNTPPacket(t *testing.T) {
	want := time.Date(2024, time.March, 5, 13, 30, 0, 500_000_000, time.UTC)

	got, err := parseNTPPacket(packetAt(want))

	require.NoError(t, err)
	assert.WithinDuration(t, want, got, time.Microsecond)
}

func TestParseNTPPacket_Rejects(t *testing.T) {
	noTime := make([]byte, ntpPacketSize)
	noTime[0], noTime[1] = 0x24, 2

	kiss := packetAt(time.Now())
	kiss[1] = 0
	copy(kiss[12:16], "RATE")

	client := packetAt(time.Now())
	client[0] = 0x23

	tests := map[string]struct {
		packet []byte
		want   error
	}{
		"no transmit time": {noTime, ErrNoTime},
		"kiss of death":    {kiss, ErrKissOfDeath},
		"client mode":      {client, ErrNotServer},
		"empty":            {make([]byte, ntpPacketSize), ErrNotServer},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseNTPPacket(tt.packet)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSNTP_KissOfDeath(t *testing.T) {
	reply := packetAt(time.Now())
	reply[1] = 0
	s := &SNTP{
		Timeout: time.Second,
		now:     time.Now,
		dial: func(string, string) (net.Conn, error) {
			return fakeServer(t, reply), nil
		},
	}

	_, err := s.Query("pool.ntp.org")

	assert.ErrorIs(t, err, ErrKissOfDeath)
}

func TestSNTP_Query(t *testing.T) {
	local := time.Unix(5, 0)
	server := time.Unix(2000000000, 0)
	s := &SNTP{
		Timeout: time.Second,
		now:     func() time.Time { return local },
		dial: func(network, address string) (net.Conn, error) {
			assert.Equal(t, "udp", network)
			assert.Equal(t, "pool.ntp.org:123", address)
			return fakeServer(t, packetAt(server)), nil
		},
	}

	offset, err := s.Query("pool.ntp.org")

	require.NoError(t, err)
	assert.Equal(t, server.Sub(local), offset)
}

func TestSNTP_QueryKeepsPort(t *testing.T) {
	var dialed string
	s := &SNTP{
		now: time.Now,
		dial: func(_, address string) (net.Conn, error) {
			dialed = address
			return fakeServer(t, packetAt(time.Now())), nil
		},
	}

	_, err := s.Query("127.0.0.1:1123")

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:1123", dialed)
}

func TestSNTP_ShortPacket(t *testing.T) {
	s := &SNTP{
		Timeout: time.Second,
		now:     time.Now,
		dial: func(string, string) (net.Conn, error) {
			return fakeServer(t, make([]byte, 12)), nil
		},
	}

	_, err := s.Query("pool.ntp.org")

	assert.ErrorIs(t, err, ErrShortPacket)
}

func TestSNTP_DialError(t *testing.T) {
	boom := errors.New("no route")
	s := &SNTP{
		now:  time.Now,
		dial: func(string, string) (net.Conn, error) { return nil, boom },
	}

	_, err := s.Query("pool.ntp.org")

	assert.ErrorIs(t, err, boom)
}

func TestSNTP_Timeout(t *testing.T) {
	s := &SNTP{
		Timeout: 20 * time.Millisecond,
		now:     time.Now,
		dial: func(string, string) (net.Conn, error) {
			client, server := net.Pipe()
			go func() {
				req := make([]byte, ntpPacketSize)
				_, _ = server.Read(req)
				// never answer
			}()
			t.Cleanup(func() { server.Close() })
			return client, nil
		},
	}

	_, err := s.Query("pool.ntp.org")

	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func TestHostPort(t *testing.T) {
	assert.Equal(t, "pool.ntp.org:123", hostPort("pool.ntp.org"))
	assert.Equal(t, "[::1]:123", hostPort("::1"))
	assert.Equal(t, "time.nist.gov:4123", hostPort("time.nist.gov:4123"))
}
