// The sniffer command watches quiz traffic on the wire and prints every
// message it sees, which is handy for debugging misbehaving clients without
// restarting the server with message logging enabled.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

var (
	device = flag.String("d", "en0", "Device on which to listen for packets")
	ports  = flag.String("p", "5555,5556,8080", "Comma-separated server ports to capture")
)

func main() {
	flag.Parse()

	deviceIP := getDeviceIP()
	if deviceIP == "" {
		exit("invalid device: %s", *device)
	}

	serverPorts, err := parsePorts(*ports)
	if err != nil {
		exit("invalid ports: %v", err)
	}

	handle, err := pcap.OpenLive(*device, math.MaxInt32, false, pcap.BlockForever)
	if err != nil {
		exit("error opening handle: %v", err)
	}
	_ = handle.SetBPFFilter(buildFilter(serverPorts))

	s := &sniffer{
		Writer:      bufio.NewWriter(os.Stdout),
		serverPorts: serverPorts,
	}
	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	s.startReading(packetSource.Packets())
}

func exit(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}

func getDeviceIP() string {
	devs, _ := pcap.FindAllDevs()
	for _, dev := range devs {
		if dev.Name == *device {
			for _, address := range dev.Addresses {
				return address.IP.String()
			}
		}
	}
	return ""
}

func parsePorts(list string) (map[uint16]string, error) {
	serverPorts := make(map[uint16]string)
	for _, part := range strings.Split(list, ",") {
		port, err := strconv.ParseUint(strings.TrimSpace(part), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("bad port %q", part)
		}
		serverPorts[uint16(port)] = fmt.Sprintf("QUIZ/%d", port)
	}
	if len(serverPorts) == 0 {
		return nil, fmt.Errorf("no ports given")
	}
	return serverPorts, nil
}

func buildFilter(serverPorts map[uint16]string) string {
	clauses := make([]string, 0, len(serverPorts))
	for port := range serverPorts {
		clauses = append(clauses, fmt.Sprintf("port %d", port))
	}
	sort.Strings(clauses)
	return "(tcp or udp) and (" + strings.Join(clauses, " or ") + ")"
}
