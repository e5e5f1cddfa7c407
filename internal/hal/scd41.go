package hal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// SCD41 default I2C address.
const SCD41Address = 0x62

// SCD41 commands (Sensirion SCD4x datasheet, section 3).
const (
	scd41StartPeriodic   uint16 = 0x21b1
	scd41StopPeriodic    uint16 = 0x3f86
	scd41GetDataReady    uint16 = 0xe4b8
	scd41ReadMeasurement uint16 = 0xec05
)

const (
	scd41CommandDelay = time.Millisecond
	scd41StopDelay    = 500 * time.Millisecond
)

// SCD41Config configures OpenSCD41.
type SCD41Config struct {
	Bus            string
	Address        uint16
	PollInterval   time.Duration
	StartupRetries uint64
}

// SCD41 reads CO2, temperature and humidity from a Sensirion SCD41 in
// periodic measurement mode.
type SCD41 struct {
	mu           sync.Mutex
	dev          conn.Conn
	bus          i2c.BusCloser
	pollInterval time.Duration
	closed       bool
	now          func() time.Time
}

// NewSCD41 wraps an already opened I2C device.
func NewSCD41(dev conn.Conn, pollInterval time.Duration) *SCD41 {
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	return &SCD41{dev: dev, pollInterval: pollInterval, now: time.Now}
}

// OpenSCD41 opens the I2C bus and starts periodic measurement.
//
// The sensor occasionally NAKs right after power-up, so starting is retried
// with exponential backoff up to cfg.StartupRetries times.
func OpenSCD41(ctx context.Context, cfg SCD41Config) (*SCD41, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialising periph host: %w", err)
	}

	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("opening i2c bus %q: %w", cfg.Bus, err)
	}

	addr := cfg.Address
	if addr == 0 {
		addr = SCD41Address
	}

	s := NewSCD41(&i2c.Dev{Bus: bus, Addr: addr}, cfg.PollInterval)
	s.bus = bus

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), cfg.StartupRetries),
		ctx,
	)
	if err := backoff.Retry(s.Start, b); err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("starting scd41 periodic measurement: %w", err)
	}

	return s, nil
}

// Start stops any running measurement and starts periodic measurement.
func (s *SCD41) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A sensor left in periodic mode by a previous run rejects start.
	if err := s.command(scd41StopPeriodic); err == nil {
		time.Sleep(scd41StopDelay)
	}
	return s.command(scd41StartPeriodic)
}

// Read blocks until the sensor has a new sample and returns it.
func (s *SCD41) Read(ctx context.Context) (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Reading{}, ErrSensorClosed
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		ready, err := s.dataReady()
		if err != nil {
			return Reading{}, err
		}
		if ready {
			return s.readMeasurement()
		}

		select {
		case <-ctx.Done():
			return Reading{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close stops periodic measurement and releases the bus.
func (s *SCD41) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.command(scd41StopPeriodic)
	if s.bus != nil {
		if cerr := s.bus.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *SCD41) dataReady() (bool, error) {
	words, err := s.query(scd41GetDataReady, 1)
	if err != nil {
		return false, fmt.Errorf("reading data ready status: %w", err)
	}
	// Lower 11 bits are zero while no new sample is available.
	return words[0]&0x07ff != 0, nil
}

func (s *SCD41) readMeasurement() (Reading, error) {
	words, err := s.query(scd41ReadMeasurement, 3)
	if err != nil {
		return Reading{}, fmt.Errorf("reading measurement: %w", err)
	}
	return decodeMeasurement(words, s.now()), nil
}

func (s *SCD41) command(cmd uint16) error {
	return s.dev.Tx([]byte{byte(cmd >> 8), byte(cmd)}, nil)
}

// query sends cmd and reads n CRC-protected words. The SCD41 needs a pause
// between the command write and the read, so they are separate transfers.
func (s *SCD41) query(cmd uint16, n int) ([]uint16, error) {
	if err := s.command(cmd); err != nil {
		return nil, err
	}
	time.Sleep(scd41CommandDelay)

	buf := make([]byte, 3*n)
	if err := s.dev.Tx(nil, buf); err != nil {
		return nil, err
	}
	return decodeWords(buf)
}

func decodeWords(buf []byte) ([]uint16, error) {
	words := make([]uint16, 0, len(buf)/3)
	for i := 0; i+2 < len(buf); i += 3 {
		if got := crc8(buf[i : i+2]); got != buf[i+2] {
			return nil, fmt.Errorf("%w: word %d got 0x%02x want 0x%02x", ErrCRCMismatch, i/3, buf[i+2], got)
		}
		words = append(words, uint16(buf[i])<<8|uint16(buf[i+1]))
	}
	return words, nil
}

func decodeMeasurement(words []uint16, at time.Time) Reading {
	return Reading{
		CO2:         words[0],
		Temperature: -45 + 175*float64(words[1])/65535,
		Humidity:    100 * float64(words[2]) / 65535,
		At:          at,
	}
}

// crc8 is the Sensirion checksum: polynomial 0x31, init 0xff.
func crc8(data []byte) byte {
	crc := byte(0xff)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
