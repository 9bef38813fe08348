package regmap

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/simonvetter/modbus"
)

type Logger interface {
	Append(text string)
}

type discardLogger struct{}

func (discardLogger) Append(string) {}

// ModbusServer serves the registers of a map over modbus TCP. Every unit of
// the unit table acts as one slave; slaves start offline and are switched
// with Connect and Disconnect.
type ModbusServer struct {
	url    string
	logger Logger
	units  *UnitTable
	bus    Bus

	mu     sync.Mutex
	server *modbus.ModbusServer
	addr   string
	slaves map[uint8]bool

	// busMu serializes register access so that read-modify-write cycles of
	// concurrent clients do not interleave.
	busMu sync.Mutex
	logMu sync.Mutex
}

// NewModbusServer creates a server for url (tcp://host:port). Reads and
// writes of mapped registers go to bus. Port 0 picks a free port on Start.
func NewModbusServer(url string, units *UnitTable, bus Bus, logger Logger) (*ModbusServer, error) {
	splitURL := strings.SplitN(url, "://", 2)
	if len(splitURL) != 2 || splitURL[0] != "tcp" {
		return nil, fmt.Errorf("unsupported server url %q, want tcp://host:port", url)
	}
	if _, _, err := net.SplitHostPort(splitURL[1]); err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", url, err)
	}
	if logger == nil {
		logger = discardLogger{}
	}
	s := &ModbusServer{
		url:    splitURL[1],
		logger: logger,
		units:  units,
		bus:    bus,
		slaves: make(map[uint8]bool),
	}
	for _, u := range units.Units() {
		s.slaves[u.Address] = false
	}
	return s, nil
}

func (s *ModbusServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return nil
	}

	addr, err := listenAddr(s.url)
	if err != nil {
		return err
	}
	server, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        "tcp://" + addr,
		Timeout:    30 * time.Second,
		MaxClients: 10,
		Logger:     slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug),
	}, &handler{s})
	if err != nil {
		return err
	}
	if err = server.Start(); err != nil {
		return err
	}
	s.server = server
	s.addr = addr
	s.log("listening on %s", addr)
	return nil
}

// listenAddr resolves port 0 to a free port, since the listener of the
// modbus server is not exposed.
func listenAddr(hostPort string) (string, error) {
	host, port, err := net.SplitHostPort(hostPort)
	if err != nil {
		return "", err
	}
	if port != "0" {
		return hostPort, nil
	}
	l, err := net.Listen("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return "", err
	}
	defer l.Close()
	return l.Addr().String(), nil
}

// Addr returns the host:port the server listens on, or "" before Start.
func (s *ModbusServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop closes the listener and all client connections. Stopping a server
// that was never started is a no-op.
func (s *ModbusServer) Stop() error {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.addr = ""
	s.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Stop()
}

func (s *ModbusServer) Connect(slaveID uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slaves[slaveID]; ok {
		s.slaves[slaveID] = true
	}
}

func (s *ModbusServer) Disconnect(slaveID uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slaves[slaveID]; ok {
		s.slaves[slaveID] = false
	}
}

func (s *ModbusServer) Online(slaveID uint8) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slaves[slaveID]
}

func (s *ModbusServer) log(format string, args ...any) {
	ts := time.Now().Format(time.DateTime)
	s.logMu.Lock()
	defer s.logMu.Unlock()
	s.logger.Append(ts + ": " + fmt.Sprintf(format, args...))
}

// handler answers the requests the modbus server decoded. Errors returned
// to the server must be the modbus sentinels, they are compared by identity.
type handler struct {
	s *ModbusServer
}

func (h *handler) HandleCoils(*modbus.CoilsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *handler) HandleDiscreteInputs(*modbus.DiscreteInputsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *handler) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	s := h.s
	if req.IsWrite {
		s.log("req: %s slave id: %d write addr: %d values: %04X", req.ClientAddr, req.UnitId, req.Addr, req.Args)
		if !s.Online(req.UnitId) {
			return nil, modbus.ErrGWTargetFailedToRespond
		}
		if err := s.writeWords(req.UnitId, req.Addr, req.Args); err != nil {
			return nil, exception(err)
		}
		return nil, nil
	}
	return h.read(req.ClientAddr, req.UnitId, req.Addr, req.Quantity)
}

func (h *handler) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	return h.read(req.ClientAddr, req.UnitId, req.Addr, req.Quantity)
}

func (h *handler) read(client string, unit uint8, addr, quantity uint16) ([]uint16, error) {
	s := h.s
	s.log("req: %s slave id: %d read addr: %d quantity: %d", client, unit, addr, quantity)
	if !s.Online(unit) {
		return nil, modbus.ErrGWTargetFailedToRespond
	}
	values, err := s.readWords(unit, addr, quantity)
	if err != nil {
		return nil, exception(err)
	}
	s.log("res: %s slave id: %d values: %04X", client, unit, values)
	return values, nil
}

func exception(err error) error {
	switch {
	case errors.Is(err, ErrUnmapped), errors.Is(err, ErrReadOnly), errors.Is(err, ErrUnknownUnit):
		return modbus.ErrIllegalDataAddress
	}
	return modbus.ErrServerDeviceFailure
}

// locate returns the register behind a word address and the index of the
// word within the register, counting from the most significant word.
func (s *ModbusServer) locate(unit uint8, addr uint16) (Entry, int, error) {
	offset, err := s.units.Locate(unit, addr)
	if err != nil {
		return Entry{}, 0, err
	}
	reg, ok := s.units.Map().At(offset)
	if !ok {
		return Entry{}, 0, fmt.Errorf("%w: unit %d address 0x%04X", ErrUnmapped, unit, addr)
	}
	return reg, int((offset - reg.Offset) / 2), nil
}

func wordShift(reg Entry, word int) uint {
	return uint(16 * (int(reg.Width/16) - 1 - word))
}

func (s *ModbusServer) readWords(unit uint8, addr, quantity uint16) ([]uint16, error) {
	s.busMu.Lock()
	defer s.busMu.Unlock()

	values := make([]uint16, 0, quantity)
	cache := make(map[uint64]uint32)
	for i := uint16(0); i < quantity; i++ {
		reg, word, err := s.locate(unit, addr+i)
		if err != nil {
			return nil, err
		}
		v, ok := cache[reg.Offset]
		if !ok {
			v, err = s.bus.Read(reg.Offset, reg.Width)
			if err != nil {
				slog.Error("bus read failed", "register", reg.Path, "err", err)
				return nil, err
			}
			cache[reg.Offset] = v
		}
		values = append(values, uint16(v>>wordShift(reg, word)))
	}
	return values, nil
}

// writeWords writes consecutive words. All addressed registers are checked
// before the first bus write; registers that are only partly covered are
// merged with their current value.
func (s *ModbusServer) writeWords(unit uint8, addr uint16, values []uint16) error {
	s.busMu.Lock()
	defer s.busMu.Unlock()

	type pending struct {
		reg   Entry
		value uint32
		mask  uint32
	}
	var order []*pending
	byOffset := make(map[uint64]*pending)

	for i, w := range values {
		reg, word, err := s.locate(unit, addr+uint16(i))
		if err != nil {
			return err
		}
		if !reg.Mode.Writable() {
			return fmt.Errorf("%w: %s", ErrReadOnly, reg.Path)
		}
		p, ok := byOffset[reg.Offset]
		if !ok {
			p = &pending{reg: reg}
			byOffset[reg.Offset] = p
			order = append(order, p)
		}
		shift := wordShift(reg, word)
		p.value = p.value&^(0xFFFF<<shift) | uint32(w)<<shift
		p.mask |= 0xFFFF << shift
	}

	for _, p := range order {
		full := uint32(1)<<p.reg.Width - 1
		if p.mask != full {
			cur, err := s.bus.Read(p.reg.Offset, p.reg.Width)
			if err != nil {
				slog.Error("bus read failed", "register", p.reg.Path, "err", err)
				return err
			}
			p.value = cur&^p.mask | p.value&p.mask
		}
		if err := s.bus.Write(p.reg.Offset, p.reg.Width, p.value); err != nil {
			slog.Error("bus write failed", "register", p.reg.Path, "err", err)
			return err
		}
	}
	return nil
}
