// Package wpatest provides an in-process supplicant control socket for tests.
package wpatest

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
)

// Daemon listens on <dir>/<iface> and answers requests with a handler.
// ATTACH and DETACH are handled internally.
type Daemon struct {
	Dir       string
	Interface string

	conn    *net.UnixConn
	handler func(cmd string) string

	mu       sync.Mutex
	monitors []*net.UnixAddr
	commands []string
	done     chan struct{}
}

// Start binds the socket and serves until Close.
func Start(dir, iface string, handler func(cmd string) string) (*Daemon, error) {
	path := filepath.Join(dir, iface)
	os.Remove(path)
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		return nil, err
	}
	d := &Daemon{
		Dir:       dir,
		Interface: iface,
		conn:      conn,
		handler:   handler,
		done:      make(chan struct{}),
	}
	go d.serve()
	return d, nil
}

func (d *Daemon) serve() {
	defer close(d.done)
	buf := make([]byte, 8192)
	for {
		n, addr, err := d.conn.ReadFromUnix(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		cmd := string(buf[:n])
		var reply string
		switch cmd {
		case "ATTACH":
			d.mu.Lock()
			d.monitors = append(d.monitors, addr)
			d.mu.Unlock()
			reply = "OK\n"
		case "DETACH":
			d.mu.Lock()
			for i, m := range d.monitors {
				if m.Name == addr.Name {
					d.monitors = append(d.monitors[:i], d.monitors[i+1:]...)
					break
				}
			}
			d.mu.Unlock()
			continue
		default:
			d.mu.Lock()
			d.commands = append(d.commands, cmd)
			d.mu.Unlock()
			reply = d.handler(cmd)
		}
		d.conn.WriteToUnix([]byte(reply), addr)
	}
}

// Commands returns every request received so far, in order.
func (d *Daemon) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}

// Attached reports how many monitors are attached.
func (d *Daemon) Attached() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.monitors)
}

// Send delivers an event line to every attached monitor.
func (d *Daemon) Send(event string) {
	d.mu.Lock()
	monitors := append([]*net.UnixAddr(nil), d.monitors...)
	d.mu.Unlock()
	for _, m := range monitors {
		d.conn.WriteToUnix([]byte("<2>"+event), m)
	}
}

// Close stops serving and removes the socket.
func (d *Daemon) Close() {
	d.conn.Close()
	<-d.done
	os.Remove(filepath.Join(d.Dir, d.Interface))
}
