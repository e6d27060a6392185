package main

import (
	"bufio"
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket"

	quizdebug "github.com/Moatez-69/quiznet-tcp-udp/internal/core/debug"
	"github.com/Moatez-69/quiznet-tcp-udp/internal/protocol"
)

// sniffer prints quiz messages as they cross the wire. The dialect is
// plaintext JSON lines on every transport, so each captured payload just
// needs to be split back into messages and attributed to a direction.
type sniffer struct {
	Writer *bufio.Writer

	serverPorts map[uint16]string
}

func (s *sniffer) startReading(packetChan chan gopacket.Packet) {
	for packet := range packetChan {
		transport := packet.TransportLayer()
		app := packet.ApplicationLayer()
		if transport == nil || app == nil || len(app.Payload()) == 0 {
			continue
		}

		flow := transport.TransportFlow()
		srcPort := binary.BigEndian.Uint16(flow.Src().Raw())
		dstPort := binary.BigEndian.Uint16(flow.Dst().Raw())

		clientMessage, serverName := s.messageDirection(srcPort, dstPort)
		if serverName == "" {
			continue
		}

		remoteAddr := clientAddress(packet, clientMessage)
		for _, payload := range protocol.SplitDatagram(app.Payload()) {
			quizdebug.PrintMessage(quizdebug.PrintMessageParams{
				Writer:        s.Writer,
				ServerName:    serverName,
				RemoteAddr:    remoteAddr,
				ClientMessage: clientMessage,
				Data:          payload,
			})
		}
	}
}

// Guesses which side sent the packet based on which of the two ports is a
// known server port.
func (s *sniffer) messageDirection(srcPort, dstPort uint16) (bool, string) {
	if name, ok := s.serverPorts[dstPort]; ok {
		return true, name
	}
	if name, ok := s.serverPorts[srcPort]; ok {
		return false, name
	}
	return false, ""
}

// clientAddress renders the client end of the flow, which is the source for
// client messages and the destination for server messages.
func clientAddress(packet gopacket.Packet, clientMessage bool) string {
	network := packet.NetworkLayer()
	if network == nil {
		return "?"
	}

	netFlow := network.NetworkFlow()
	transFlow := packet.TransportLayer().TransportFlow()
	if clientMessage {
		return fmt.Sprintf("%v:%v", netFlow.Src(), transFlow.Src())
	}
	return fmt.Sprintf("%v:%v", netFlow.Dst(), transFlow.Dst())
}
