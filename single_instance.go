package main

import (
	"fmt"
	"net"
	"sync"
	"time"
)

const (
	singleInstanceAddr    = "127.0.0.1:49877"
	singleInstanceTimeout = time.Second
)

// SingleInstance refuses to run two bridges against the same panel. A second
// launch pings the running one, which surfaces the attempt on its status
// stream and reports its current bridge state back to the failed starter.
type SingleInstance struct {
	listener net.Listener
	mu       sync.Mutex
	onPing   func() string
}

func NewSingleInstance() (*SingleInstance, error) {
	listener, err := net.Listen("tcp", singleInstanceAddr)
	if err != nil {
		if state := pingRunningInstance(); state != "" {
			return nil, fmt.Errorf("another instance is already running (%s)", state)
		}
		return nil, fmt.Errorf("another instance is already running")
	}

	si := &SingleInstance{listener: listener}
	go si.listenLoop()
	return si, nil
}

// pingRunningInstance notifies the holder of the instance port and returns
// the state it reports, or "" when nothing answers.
func pingRunningInstance() string {
	conn, err := net.DialTimeout("tcp", singleInstanceAddr, singleInstanceTimeout)
	if err != nil {
		return ""
	}
	defer conn.Close()

	conn.Write([]byte("ping"))
	conn.SetReadDeadline(time.Now().Add(singleInstanceTimeout))
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		return ""
	}
	return string(buf[:n])
}

// SetOnPing installs the callback invoked when another launch pings this
// instance. Its return value is sent back as the reported state.
func (si *SingleInstance) SetOnPing(fn func() string) {
	si.mu.Lock()
	si.onPing = fn
	si.mu.Unlock()
}

func (si *SingleInstance) Close() {
	si.listener.Close()
}

func (si *SingleInstance) listenLoop() {
	for {
		conn, err := si.listener.Accept()
		if err != nil {
			return
		}

		buf := make([]byte, 4)
		conn.Read(buf)
		if string(buf) == "ping" {
			si.mu.Lock()
			fn := si.onPing
			si.mu.Unlock()

			reply := "starting"
			if fn != nil {
				reply = fn()
			}
			conn.Write([]byte(reply))
		}
		conn.Close()
	}
}
