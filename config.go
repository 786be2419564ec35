package serial

import "fmt"

// FlowControl represents the flow control mode
type FlowControl int

const (
	FlowControlNone FlowControl = iota
	FlowControlRTSCTS
)

func (fc FlowControl) String() string {
	switch fc {
	case FlowControlNone:
		return "none"
	case FlowControlRTSCTS:
		return "rts/cts"
	default:
		return "unknown"
	}
}

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

// Letter returns the single letter used in framing shorthand such as 8N2.
func (p Parity) Letter() string {
	switch p {
	case ParityNone:
		return "N"
	case ParityOdd:
		return "O"
	case ParityEven:
		return "E"
	case ParityMark:
		return "M"
	case ParitySpace:
		return "S"
	default:
		return "?"
	}
}

// Config holds the framing applied to a port when it is opened.
//
// A loopback run applies the same Config to every port it probes. Exclusive
// is the lock state the port is left in once configuration is done; the
// native backend always holds the lock while it configures.
type Config struct {
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      Parity
	FlowControl FlowControl
	Exclusive   bool
}

// Option is a functional option for configuring a serial port
type Option func(*Config) error

// DefaultConfig returns the loopback configuration: 19200 baud, 8N2,
// no flow control, non-exclusive.
func DefaultConfig() Config {
	return Config{
		BaudRate:    19200,
		DataBits:    8,
		StopBits:    2,
		Parity:      ParityNone,
		FlowControl: FlowControlNone,
		Exclusive:   false,
	}
}

// NewConfig applies opts on top of DefaultConfig.
func NewConfig(opts ...Option) (Config, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return Config{}, err
		}
	}
	return config, nil
}

// Validate reports whether every field holds a value a backend can apply.
func (c Config) Validate() error {
	if !isStandardBaudRate(c.BaudRate) {
		return ErrInvalidBaudRate
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return ErrInvalidConfig
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		return ErrInvalidConfig
	}
	if c.Parity < ParityNone || c.Parity > ParitySpace {
		return ErrInvalidConfig
	}
	if c.FlowControl != FlowControlNone && c.FlowControl != FlowControlRTSCTS {
		return ErrInvalidConfig
	}
	return nil
}

// String renders the framing the way it is usually written, e.g.
// "19200 8N2 flow:none".
func (c Config) String() string {
	s := fmt.Sprintf("%d %d%s%d flow:%s", c.BaudRate, c.DataBits, c.Parity.Letter(), c.StopBits, c.FlowControl)
	if c.Exclusive {
		s += " exclusive"
	}
	return s
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if !isStandardBaudRate(rate) {
			return ErrInvalidBaudRate
		}
		c.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if bits < 5 || bits > 8 {
			return ErrInvalidConfig
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits (1 or 2)
func WithStopBits(bits int) Option {
	return func(c *Config) error {
		if bits != 1 && bits != 2 {
			return ErrInvalidConfig
		}
		c.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		if parity < ParityNone || parity > ParitySpace {
			return ErrInvalidConfig
		}
		c.Parity = parity
		return nil
	}
}

// WithFlowControl sets the flow control mode
func WithFlowControl(fc FlowControl) Option {
	return func(c *Config) error {
		c.FlowControl = fc
		return nil
	}
}

// WithExclusive sets whether the port keeps its exclusive lock after opening
func WithExclusive(exclusive bool) Option {
	return func(c *Config) error {
		c.Exclusive = exclusive
		return nil
	}
}

// standardBaudRates lists the rates every backend accepts, lowest first.
var standardBaudRates = []int{
	50, 75, 110, 134, 150, 200, 300, 600, 1200, 1800, 2400, 4800, 9600,
	19200, 38400, 57600, 115200, 230400, 460800, 500000, 576000, 921600,
	1000000, 1152000, 1500000, 2000000, 2500000, 3000000, 3500000, 4000000,
}

func isStandardBaudRate(rate int) bool {
	for _, r := range standardBaudRates {
		if r == rate {
			return true
		}
	}
	return false
}
