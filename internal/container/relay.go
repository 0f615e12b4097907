package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"debugwand/internal/target"
	"debugwand/pkg/logging"
)

const dialTimeout = 5 * time.Second

// startRelay listens on 127.0.0.1:localPort and copies every accepted
// connection to remoteAddr. The tunnel is ready as soon as the listener is
// bound.
func startRelay(ctx context.Context, localPort int, remoteAddr string) (target.Tunnel, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", localPort))
	if err != nil {
		return nil, fmt.Errorf("listen on 127.0.0.1:%d: %w", localPort, err)
	}

	tunnel := target.NewChanTunnel()
	tunnel.MarkReady()
	logging.Debug("Relay", "Relaying 127.0.0.1:%d to %s", localPort, remoteAddr)

	go func() {
		select {
		case <-tunnel.StopChan():
		case <-ctx.Done():
		}
		ln.Close()
	}()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					tunnel.Finish(nil)
				} else {
					tunnel.Finish(err)
				}
				return
			}
			go pipe(conn, remoteAddr)
		}
	}()

	return tunnel, nil
}

func pipe(local net.Conn, remoteAddr string) {
	defer local.Close()
	remote, err := net.DialTimeout("tcp", remoteAddr, dialTimeout)
	if err != nil {
		logging.Warn("Relay", "Dial %s failed: %v", remoteAddr, err)
		return
	}
	defer remote.Close()

	done := make(chan struct{}, 2)
	go func() {
		io.Copy(remote, local)
		done <- struct{}{}
	}()
	go func() {
		io.Copy(local, remote)
		done <- struct{}{}
	}()
	<-done
}
