package socks5

import (
	"fmt"
	"unicode/utf8"

	"github.com/postalsys/socks5d/internal/logging"
)

// handshake runs the method negotiation (RFC 1928 §3) and, if username/
// password was selected, the RFC 1929 sub-negotiation.
func (c *Connection) handshake() error {
	hdr, err := readExactN(c, 2)
	if err != nil {
		return errIO(err)
	}
	if hdr[0] != Version {
		return errUnsupportedVersion(hdr[0])
	}
	c.advance(StateMethodsRead)

	methods, err := readExactN(c, int(hdr[1]))
	if err != nil {
		return errIO(err)
	}

	required := byte(AuthMethodNoAuth)
	if c.cfg.Authenticator != nil {
		required = AuthMethodUserPass
	}

	if !containsMethod(methods, required) {
		c.Write([]byte{Version, AuthMethodNoAcceptable})
		c.auth = AuthenticationMethod{kind: authUnacceptable}
		return errAuthMethodUnacceptable()
	}

	if _, err := c.Write([]byte{Version, required}); err != nil {
		return errIO(err)
	}
	c.advance(StateMethodChosen)

	if required == AuthMethodUserPass {
		if err := c.subNegotiate(); err != nil {
			return err
		}
		c.advance(StateSubAuthed)
	} else {
		c.auth = AuthenticationMethod{kind: authNone}
	}

	return nil
}

func containsMethod(methods []byte, want byte) bool {
	for _, m := range methods {
		if m == want {
			return true
		}
	}
	return false
}

// subNegotiate runs the RFC 1929 username/password exchange. Its own
// version byte (0x01) is distinct from the SOCKS version (0x05).
func (c *Connection) subNegotiate() error {
	hdr, err := readExactN(c, 2)
	if err != nil {
		return errIO(err)
	}
	if hdr[0] != userPassVersion {
		return errAuthenticationFailed(fmt.Errorf("unexpected sub-negotiation version 0x%02x", hdr[0]))
	}
	uLen := int(hdr[1])
	if uLen < 1 {
		return errAuthenticationFailed(fmt.Errorf("empty username"))
	}
	userBuf, err := readExactN(c, uLen)
	if err != nil {
		return errIO(err)
	}

	pLenBuf, err := readExactN(c, 1)
	if err != nil {
		return errIO(err)
	}
	pLen := int(pLenBuf[0])
	if pLen < 1 {
		return errAuthenticationFailed(fmt.Errorf("empty password"))
	}
	passBuf, err := readExactN(c, pLen)
	if err != nil {
		return errIO(err)
	}

	user, pass := string(userBuf), string(passBuf)
	if !utf8.ValidString(user) || !utf8.ValidString(pass) {
		return errAuthenticationFailed(fmt.Errorf("credentials are not valid UTF-8"))
	}

	if !c.cfg.Authenticator.Authenticate(user, pass) {
		c.Write([]byte{userPassVersion, authStatusFail})
		if c.metric != nil {
			c.metric.AuthFailures.Inc()
		}
		return errAuthenticationRejected(user)
	}

	if _, err := c.Write([]byte{userPassVersion, authStatusOK}); err != nil {
		return errIO(err)
	}
	c.auth = AuthenticationMethod{kind: authPassword, User: user}
	c.log.Debug("sub-negotiation accepted", logging.KeyAuthUser, user)
	return nil
}
