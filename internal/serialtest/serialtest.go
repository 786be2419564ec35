// Package serialtest provides scripted serial devices for tests.
package serialtest

import (
	"sync"
	"time"

	serial "github.com/allbin/serial-loopback"
)

// Behavior scripts how a mock device responds. A zero Behavior opens
// successfully, accepts writes, and never answers a read.
type Behavior struct {
	OpenErr       error
	ExclusiveErr  error
	NoExclusivity bool // SupportsExclusivityControl reports false

	WriteErr   error
	WriteLimit int // if > 0, Write reports at most this many bytes

	Echo       bool   // reply with whatever was written
	Reply      []byte // fixed reply, used when Echo is false
	ReplyDelay time.Duration
	ReadErr    error // returned after ReplyDelay
}

func (b Behavior) silent() bool {
	return b.ReadErr == nil && !b.Echo && b.Reply == nil
}

// Stats counts the calls made against one device path.
type Stats struct {
	Opens        int
	Closes       int
	Writes       int
	Reads        int
	SetExclusive int
}

// Opener is a serial.Opener backed by scripted devices
type Opener struct {
	mu        sync.Mutex
	behaviors map[string]Behavior
	stats     map[string]*Stats
	ports     map[string]*Port
	order     []string
	events    []string
}

var _ serial.Opener = (*Opener)(nil)

// NewOpener creates an opener with no scripted devices. Unscripted paths
// behave like a zero Behavior.
func NewOpener() *Opener {
	return &Opener{
		behaviors: make(map[string]Behavior),
		stats:     make(map[string]*Stats),
		ports:     make(map[string]*Port),
	}
}

// SetBehavior scripts the device at path
func (o *Opener) SetBehavior(path string, b Behavior) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.behaviors[path] = b
}

func (o *Opener) Open(path string, config serial.Config) (serial.Port, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.statsLocked(path).Opens++
	o.order = append(o.order, path)
	o.events = append(o.events, "open:"+path)

	b := o.behaviors[path]
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	if err := config.Validate(); err != nil {
		return nil, &serial.PortError{Op: "configure", Path: path, Kind: err}
	}

	p := &Port{
		opener:    o,
		path:      path,
		behavior:  b,
		config:    config,
		exclusive: true,
		written:   make(chan struct{}),
		closed:    make(chan struct{}),
	}
	o.ports[path] = p
	return p, nil
}

// Stats returns a snapshot of the calls made against path
func (o *Opener) Stats(path string) Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return *o.statsLocked(path)
}

// OpenOrder lists every path passed to Open, in call order
func (o *Opener) OpenOrder() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.order...)
}

// Events lists opens and effective closes in the order they happened, as
// "open:<path>" and "close:<path>". Failed opens are included; repeated
// closes of the same port are not.
func (o *Opener) Events() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.events...)
}

func (o *Opener) record(event string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

// LastPort returns the most recent port opened for path, or nil
func (o *Opener) LastPort(path string) *Port {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ports[path]
}

func (o *Opener) statsLocked(path string) *Stats {
	s, ok := o.stats[path]
	if !ok {
		s = &Stats{}
		o.stats[path] = s
	}
	return s
}

func (o *Opener) count(path string, fn func(*Stats)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(o.statsLocked(path))
}

// Port is a scripted serial.Port
type Port struct {
	opener   *Opener
	path     string
	behavior Behavior

	mu          sync.Mutex
	config      serial.Config
	exclusive   bool
	writtenData []byte

	written     chan struct{}
	writtenOnce sync.Once
	closed      chan struct{}
	closeOnce   sync.Once
}

var _ serial.Port = (*Port)(nil)

func (p *Port) Read(buf []byte) (int, error) {
	p.opener.count(p.path, func(s *Stats) { s.Reads++ })

	if p.IsClosed() {
		return 0, serial.ErrPortClosed
	}

	b := p.behavior
	if b.silent() {
		<-p.closed
		return 0, serial.ErrPortClosed
	}

	if b.Echo && b.ReadErr == nil {
		select {
		case <-p.written:
		case <-p.closed:
			return 0, serial.ErrPortClosed
		}
	}

	timer := time.NewTimer(b.ReplyDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-p.closed:
		return 0, serial.ErrPortClosed
	}

	if b.ReadErr != nil {
		return 0, b.ReadErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if b.Echo {
		return copy(buf, p.writtenData), nil
	}
	return copy(buf, b.Reply), nil
}

func (p *Port) Write(data []byte) (int, error) {
	p.opener.count(p.path, func(s *Stats) { s.Writes++ })

	if p.IsClosed() {
		return 0, serial.ErrPortClosed
	}
	if p.behavior.WriteErr != nil {
		return 0, p.behavior.WriteErr
	}

	n := len(data)
	if p.behavior.WriteLimit > 0 && n > p.behavior.WriteLimit {
		n = p.behavior.WriteLimit
	}

	p.mu.Lock()
	p.writtenData = append(p.writtenData, data[:n]...)
	p.mu.Unlock()

	p.writtenOnce.Do(func() { close(p.written) })
	return n, nil
}

// Close counts every call; only the first one closes the port
func (p *Port) Close() error {
	p.opener.count(p.path, func(s *Stats) { s.Closes++ })

	err := serial.ErrPortClosed
	p.closeOnce.Do(func() {
		close(p.closed)
		p.opener.record("close:" + p.path)
		err = nil
	})
	return err
}

// IsClosed reports whether Close has been called
func (p *Port) IsClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

// Written returns the bytes accepted by Write so far
func (p *Port) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.writtenData...)
}

func (p *Port) SupportsExclusivityControl() bool {
	return !p.behavior.NoExclusivity
}

func (p *Port) SetExclusive(exclusive bool) error {
	p.opener.count(p.path, func(s *Stats) { s.SetExclusive++ })

	if p.behavior.NoExclusivity {
		return serial.ErrExclusivityUnsupported
	}
	if p.behavior.ExclusiveErr != nil {
		return p.behavior.ExclusiveErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.exclusive = exclusive
	return nil
}

func (p *Port) AppliedConfig() (serial.Config, error) {
	if p.IsClosed() {
		return serial.Config{}, serial.ErrPortClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	config := p.config
	config.Exclusive = p.exclusive
	return config, nil
}

// Ports returns an enumerator that lists the given paths in order
func Ports(names ...string) serial.Enumerator {
	return serial.EnumeratorFunc(func() ([]serial.DeviceDescriptor, error) {
		ports := make([]serial.DeviceDescriptor, 0, len(names))
		for _, name := range names {
			ports = append(ports, serial.DeviceDescriptor{
				Name: name,
				Type: serial.PortTypeUnknown,
			})
		}
		return ports, nil
	})
}

// FailingEnumerator returns an enumerator that always fails with err
func FailingEnumerator(err error) serial.Enumerator {
	return serial.EnumeratorFunc(func() ([]serial.DeviceDescriptor, error) {
		return nil, &serial.EnumerationError{Err: err}
	})
}
