package socks5

import (
	"bytes"
	"net"
	"testing"
)

func TestReadAddress_IPv4(t *testing.T) {
	buf := append([]byte{192, 168, 1, 1}, 0x1F, 0x90) // port 8080
	addr, err := readAddress(bytes.NewReader(buf), AddrTypeIPv4)
	if err != nil {
		t.Fatalf("readAddress() error = %v", err)
	}
	if addr.IsDomain() {
		t.Fatal("expected IP address, got domain")
	}
	if !addr.IP.Equal(net.IPv4(192, 168, 1, 1)) {
		t.Errorf("IP = %v, want 192.168.1.1", addr.IP)
	}
	if addr.Port != 8080 {
		t.Errorf("Port = %d, want 8080", addr.Port)
	}
}

func TestReadAddress_IPv6(t *testing.T) {
	ip := net.ParseIP("2001:db8::1")
	buf := append(append([]byte{}, ip.To16()...), 0x00, 0x50)
	addr, err := readAddress(bytes.NewReader(buf), AddrTypeIPv6)
	if err != nil {
		t.Fatalf("readAddress() error = %v", err)
	}
	if !addr.IP.Equal(ip) {
		t.Errorf("IP = %v, want %v", addr.IP, ip)
	}
	if addr.Port != 80 {
		t.Errorf("Port = %d, want 80", addr.Port)
	}
}

func TestReadAddress_Domain(t *testing.T) {
	name := "example.com"
	buf := append([]byte{byte(len(name))}, name...)
	buf = append(buf, 0x01, 0xBB) // port 443
	addr, err := readAddress(bytes.NewReader(buf), AddrTypeDomain)
	if err != nil {
		t.Fatalf("readAddress() error = %v", err)
	}
	if !addr.IsDomain() {
		t.Fatal("expected domain address")
	}
	if addr.Domain != name {
		t.Errorf("Domain = %q, want %q", addr.Domain, name)
	}
	if addr.Port != 443 {
		t.Errorf("Port = %d, want 443", addr.Port)
	}
}

func TestReadAddress_ZeroLengthDomain(t *testing.T) {
	buf := []byte{0x00, 0x00, 0x50}
	if _, err := readAddress(bytes.NewReader(buf), AddrTypeDomain); err == nil {
		t.Error("expected error for zero-length domain, got nil")
	}
}

func TestReadAddress_DomainWithNUL(t *testing.T) {
	name := "evil\x00.com"
	buf := append([]byte{byte(len(name))}, name...)
	buf = append(buf, 0x00, 0x50)
	if _, err := readAddress(bytes.NewReader(buf), AddrTypeDomain); err == nil {
		t.Error("expected error for NUL byte in domain, got nil")
	}
}

func TestReadAddress_UnsupportedType(t *testing.T) {
	if _, err := readAddress(bytes.NewReader(nil), 0x7F); err == nil {
		t.Error("expected error for unsupported address type, got nil")
	}
}

func TestReadAddress_Truncated(t *testing.T) {
	if _, err := readAddress(bytes.NewReader([]byte{1, 2, 3}), AddrTypeIPv4); err == nil {
		t.Error("expected error for truncated IPv4 address, got nil")
	}
}

func TestAppendAddress_RoundTrip(t *testing.T) {
	tests := []TargetAddress{
		{IP: net.IPv4(10, 0, 0, 1), Port: 1080},
		{IP: net.ParseIP("::1"), Port: 53},
		{Domain: "example.org", Port: 9000},
	}

	for _, addr := range tests {
		encoded := appendAddress(nil, addr)
		atyp := encoded[0]
		decoded, err := readAddress(bytes.NewReader(encoded[1:]), atyp)
		if err != nil {
			t.Fatalf("round trip of %v failed: %v", addr, err)
		}
		if decoded.Port != addr.Port {
			t.Errorf("Port = %d, want %d", decoded.Port, addr.Port)
		}
		if addr.IsDomain() {
			if decoded.Domain != addr.Domain {
				t.Errorf("Domain = %q, want %q", decoded.Domain, addr.Domain)
			}
		} else if !decoded.IP.Equal(addr.IP) {
			t.Errorf("IP = %v, want %v", decoded.IP, addr.IP)
		}
	}
}

func TestTargetAddress_String(t *testing.T) {
	addr := TargetAddress{IP: net.IPv4(127, 0, 0, 1), Port: 1080}
	if got, want := addr.String(), "127.0.0.1:1080"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	domainAddr := TargetAddress{Domain: "example.com", Port: 443}
	if got, want := domainAddr.String(), "example.com:443"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
