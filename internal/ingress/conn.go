package ingress

import (
	"bufio"
	"net"

	"github.com/phuslu/log"
)

// Conn wraps an accepted rider connection with a buffered reader and the
// handle id the presence registry keys abrupt disconnects on.
type Conn struct {
	id    string
	tuple []string
	r     *bufio.Reader
	net.Conn
}

func NewConn(c net.Conn, id string) *Conn {
	sourceip, sourceport, _ := net.SplitHostPort(c.RemoteAddr().String())
	targetip, targetport, _ := net.SplitHostPort(c.LocalAddr().String())
	return &Conn{id, []string{sourceip, sourceport, targetip, targetport}, bufio.NewReader(c), c}
}

func (c *Conn) ID() string {
	return c.id
}

// ReadFrame returns the next newline-delimited frame without the trailing
// newline.
func (c *Conn) ReadFrame() ([]byte, error) {
	line, err := c.r.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, nil
}

func (c *Conn) MarshalObject(e *log.Entry) {
	e.Str("conn_id", c.id).Strs("socket", c.tuple)
}
