package socks5

import (
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRelay_BidirectionalCopy(t *testing.T) {
	client, clientPeer := net.Pipe()
	target, targetPeer := net.Pipe()

	done := make(chan error, 1)
	go func() { done <- relay(client, target, 0, discardLogger(), nil) }()

	go func() {
		clientPeer.Write([]byte("hello-target"))
		clientPeer.Close()
	}()

	buf := make([]byte, len("hello-target"))
	if _, err := io.ReadFull(targetPeer, buf); err != nil {
		t.Fatalf("targetPeer read: %v", err)
	}
	if string(buf) != "hello-target" {
		t.Errorf("got %q, want %q", buf, "hello-target")
	}

	targetPeer.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("relay() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay() did not return after both peers closed")
	}
}

func TestRelay_FirstFinisherWins(t *testing.T) {
	client, clientPeer := net.Pipe()
	target, targetPeer := net.Pipe()
	defer clientPeer.Close()
	defer targetPeer.Close()

	done := make(chan error, 1)
	go func() { done <- relay(client, target, 0, discardLogger(), nil) }()

	// target side closes immediately; client side is never touched.
	targetPeer.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("relay() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay() should return as soon as one leg finishes")
	}
}

func TestRelay_RecordsMetrics(t *testing.T) {
	client, clientPeer := net.Pipe()
	target, targetPeer := net.Pipe()
	defer client.Close()
	defer target.Close()

	m := NewMetrics(prometheus.NewRegistry())

	done := make(chan error, 1)
	go func() { done <- relay(client, target, 0, discardLogger(), m) }()

	go func() {
		clientPeer.Write([]byte("data"))
		clientPeer.Close()
	}()

	buf := make([]byte, 4)
	io.ReadFull(targetPeer, buf)
	targetPeer.Close()

	<-done
}
