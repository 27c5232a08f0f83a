package netlink

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"syscall"

	"github.com/jsimonetti/rtnetlink"
	"github.com/mdlayher/netlink"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"wifid/internal/state"
)

const (
	rtmNewLink = syscall.RTM_NEWLINK
	rtmDelLink = syscall.RTM_DELLINK
	rtmNewAddr = syscall.RTM_NEWADDR
	rtmDelAddr = syscall.RTM_DELADDR

	// RTMGRP_LINK | RTMGRP_IPV4_IFADDR
	groups = 0x1 | 0x10
)

// Watcher follows link and IPv4 address changes of the wireless interface.
type Watcher struct {
	log       logrus.FieldLogger
	conn      *netlink.Conn   // events
	rtConn    *rtnetlink.Conn // link lookups
	stateMgr  *state.Manager
	iface     string
	index     uint32
	onAddress func()
	stopCh    chan struct{}
	lastUp    *bool
}

// NewWatcher creates a watcher for iface. onAddress runs whenever the
// interface gains or loses an address.
func NewWatcher(iface string, stateMgr *state.Manager, onAddress func(), log logrus.FieldLogger) (*Watcher, error) {
	// Events come in on a raw conn so the header type tells adds from removals.
	conn, err := netlink.Dial(syscall.NETLINK_ROUTE, &netlink.Config{Groups: groups})
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial netlink")
	}

	rtConn, err := rtnetlink.Dial(nil)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to dial rtnetlink")
	}

	return newWatcher(conn, rtConn, iface, stateMgr, onAddress, log), nil
}

func newWatcher(conn *netlink.Conn, rtConn *rtnetlink.Conn, iface string, stateMgr *state.Manager, onAddress func(), log logrus.FieldLogger) *Watcher {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Watcher{
		log:       log.WithFields(logrus.Fields{"system": "netlink", "iface": iface}),
		conn:      conn,
		rtConn:    rtConn,
		stateMgr:  stateMgr,
		iface:     iface,
		onAddress: onAddress,
		stopCh:    make(chan struct{}),
	}
}

// Close closes the netlink connections
func (w *Watcher) Close() {
	close(w.stopCh)
	w.conn.Close()
	w.rtConn.Close()
}

// Run resolves the interface and then follows events until Close.
func (w *Watcher) Run() {
	w.fetchInterface()

	for {
		msgs, err := w.conn.Receive()
		select {
		case <-w.stopCh:
			return
		default:
		}
		if err != nil {
			w.log.WithError(err).Warn("Netlink receive error")
			continue
		}
		for _, msg := range msgs {
			w.handleRawMessage(msg)
		}
	}
}

func (w *Watcher) handleRawMessage(msg netlink.Message) {
	switch t := msg.Header.Type; t {
	case rtmNewLink, rtmDelLink:
		w.handleLinkMessage(msg.Data, t == rtmDelLink)
	case rtmNewAddr, rtmDelAddr:
		w.handleAddressMessage(msg.Data, t == rtmDelAddr)
	}
}

// handleLinkMessage tracks the interface index and operational state
func (w *Watcher) handleLinkMessage(data []byte, isRemoved bool) {
	var msg rtnetlink.LinkMessage
	if err := msg.UnmarshalBinary(data); err != nil {
		w.log.WithError(err).Debug("Failed to parse link message")
		return
	}
	if msg.Attributes == nil || msg.Attributes.Name != w.iface {
		return
	}

	if isRemoved {
		w.log.WithField("index", msg.Index).Warn("Interface removed")
		w.index = 0
		w.lastUp = nil
		w.stateMgr.Update(func(st *state.State) {
			st.InterfaceIndex = 0
			st.HardwareAddress = ""
		})
		return
	}

	isUp := msg.Attributes.OperationalState == rtnetlink.OperStateUp
	if w.lastUp == nil || *w.lastUp != isUp {
		w.log.WithFields(logrus.Fields{"index": msg.Index, "up": isUp}).Info("Link state")
		w.lastUp = &isUp
	}
	w.setLink(msg.Index, msg.Attributes.Address)
}

func (w *Watcher) setLink(index uint32, hw net.HardwareAddr) {
	w.index = index
	w.stateMgr.Update(func(st *state.State) {
		st.InterfaceName = w.iface
		st.InterfaceIndex = index
		if len(hw) > 0 {
			st.HardwareAddress = hw.String()
		}
	})
}

// handleAddressMessage nudges the session when our address set changes
func (w *Watcher) handleAddressMessage(data []byte, isRemoved bool) {
	var msg rtnetlink.AddressMessage
	if err := msg.UnmarshalBinary(data); err != nil {
		w.log.WithError(err).Debug("Failed to parse address message")
		return
	}

	if w.index == 0 {
		w.fetchInterface()
	}
	if w.index == 0 || msg.Index != w.index {
		return
	}

	var ip net.IP
	if msg.Attributes != nil {
		ip = msg.Attributes.Address
	}
	w.log.WithFields(logrus.Fields{"ip": ip, "removed": isRemoved}).Info("Address change")
	if w.onAddress != nil {
		w.onAddress()
	}
}

// fetchInterface resolves the configured interface's index and MAC
func (w *Watcher) fetchInterface() {
	if w.rtConn == nil {
		return
	}
	links, err := w.rtConn.Link.List()
	if err != nil {
		w.log.WithError(err).Warn("Failed to list links")
		return
	}

	for _, link := range links {
		if link.Attributes == nil || link.Attributes.Name != w.iface {
			continue
		}
		if !isWifiInterface(w.iface) {
			w.log.Warn("Interface has no wireless extensions")
		}
		w.setLink(link.Index, link.Attributes.Address)
		return
	}
	w.log.Debug("Interface not present")
}

// isWifiInterface reports whether the kernel lists wireless extensions for name.
func isWifiInterface(name string) bool {
	_, err := os.Stat(filepath.Join("/sys/class/net", name, "wireless"))
	return err == nil
}
