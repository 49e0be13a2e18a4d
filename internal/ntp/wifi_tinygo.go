//go:build tinygo

package ntp

import (
	"time"

	"tinygo.org/x/drivers/netlink"
	"tinygo.org/x/drivers/netlink/probe"
)

// Console is where bring-up progress is printed. *textbuf.Buffer satisfies it.
type Console interface {
	Print(s string) error
	Println(s string) error
}

// ConnectWiFi probes the board's network device and joins the given Wi-Fi network. Once it returns without error the
// net package can dial UDP, so SNTP queries work.
//
// based on https://github.com/tinygo-org/drivers/blob/release/examples/net/ntpclient/main.go
func ConnectWiFi(ssid, password string, buf Console) (netlink.Netlinker, error) {
	_ = buf.Print("Wifi: init")
	linker, dever := probe.Probe()
	time.Sleep(1 * time.Second)

	_ = buf.Println(".\nConnect: " + ssid)
	err := linker.NetConnect(&netlink.ConnectParams{
		Ssid:           ssid,
		Passphrase:     password,
		AuthType:       netlink.AuthTypeWPA2,
		ConnectTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	_ = buf.Print("DHCP: ")
	time.Sleep(time.Second)
	myIP, err := dever.Addr()
	if err != nil {
		linker.NetDisconnect()
		return nil, err
	}
	_ = buf.Println(myIP.String())

	return linker, nil
}
