package supervisor

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rishav/xchange-engine/internal/ingress"
	"github.com/rishav/xchange-engine/internal/matching"
	"github.com/rishav/xchange-engine/internal/queue"
	"github.com/rishav/xchange-engine/internal/registry"
	"github.com/rishav/xchange-engine/internal/router"
	"github.com/rishav/xchange-engine/internal/wire"
)

// Supervisor wires together every component of the matching engine and
// owns its lifecycle: construction in dependency order, starting one
// goroutine per moving part, and a staged shutdown.
//
// Shutdown order mirrors the teacher's Server.Shutdown: stop accepting new
// work first, let in-flight work drain, then release sockets.
type Supervisor struct {
	cfg Config

	registry *registry.Registry
	users    *registry.UserClientMap
	udpLRU   *registry.UDPLRU

	partitionCount int
	engines        [matching.PartitionCount]*matching.Engine
	processors     [matching.PartitionCount]*matching.Processor
	inputs         [matching.PartitionCount]*queue.Ring[queue.InEnvelope]
	outputs        [matching.PartitionCount]*queue.Ring[queue.OutEnvelope]

	dispatcher *ingress.Dispatcher
	tcp        *ingress.TCPListener
	udp        *ingress.UDPReceiver

	outRouter *router.OutputRouter
	publisher *router.Publisher

	stopped chan struct{}
}

// New builds every component but starts nothing.
func New(cfg Config) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Supervisor{
		cfg:      cfg,
		registry: registry.New(),
		users:    registry.NewUserClientMap(),
		udpLRU:   registry.NewUDPLRU(registry.DefaultUDPCapacity),
		stopped:  make(chan struct{}),
	}

	s.partitionCount = matching.PartitionCount
	if cfg.SingleProcessor {
		s.partitionCount = 1
	}

	for i := 0; i < matching.PartitionCount; i++ {
		s.inputs[i] = queue.NewRing[queue.InEnvelope](queue.DefaultCapacity)
		s.outputs[i] = queue.NewRing[queue.OutEnvelope](queue.DefaultCapacity)
	}
	// Single-processor mode still lets PartitionOf split symbols between
	// the two logical partitions; routing both onto the same pair of
	// rings and running only one processor makes the split a no-op
	// without touching the ingress/matching packages.
	if cfg.SingleProcessor {
		s.inputs[matching.PartitionNZ] = s.inputs[matching.PartitionAM]
		s.outputs[matching.PartitionNZ] = s.outputs[matching.PartitionAM]
	}
	for i := 0; i < s.partitionCount; i++ {
		s.engines[i] = matching.NewEngine(matching.Partition(i))
		s.processors[i] = matching.NewProcessor(s.engines[i], s.inputs[i], s.outputs[i])
	}

	s.dispatcher = ingress.NewDispatcher(s.inputs, s.users)

	framing := registry.FramingRaw
	if cfg.LengthPrefixed {
		framing = registry.FramingLengthPrefixed
	}

	var err error
	if !cfg.NoUDP {
		addr := fmt.Sprintf(":%d", cfg.UDPPort)
		s.udp, err = ingress.NewUDPReceiver(addr, s.registry, s.udpLRU, s.dispatcher, framing, cfg.BinaryDefault)
		if err != nil {
			return nil, fmt.Errorf("supervisor: udp listen: %w", err)
		}
	}
	if !cfg.NoTCP {
		addr := fmt.Sprintf(":%d", cfg.TCPPort)
		s.tcp, err = ingress.NewTCPListener(addr, s.registry, s.dispatcher, framing, cfg.BinaryDefault)
		if err != nil {
			return nil, fmt.Errorf("supervisor: tcp listen: %w", err)
		}
	}

	sender, err := s.buildSender(cfg)
	if err != nil {
		return nil, fmt.Errorf("supervisor: build sender: %w", err)
	}

	outputsSlice := make([]*queue.Ring[queue.OutEnvelope], 0, s.partitionCount)
	for i := 0; i < s.partitionCount; i++ {
		outputsSlice = append(outputsSlice, s.outputs[i])
	}
	s.outRouter = router.NewOutputRouter(outputsSlice, s.registry, s.users, sender)

	return s, nil
}

// buildSender constructs the production Publisher, reusing the UDP
// ingress socket for client replies when UDP ingress is enabled (so
// replies appear to come from the port clients sent to) and opening a
// dedicated outbound socket otherwise.
func (s *Supervisor) buildSender(cfg Config) (router.Sender, error) {
	var udpConn *net.UDPConn
	if s.udp != nil {
		udpConn = s.udp.Conn()
	} else {
		conn, err := net.ListenUDP("udp", &net.UDPAddr{})
		if err != nil {
			return nil, err
		}
		udpConn = conn
	}

	pub, err := router.NewPublisher(udpConn, cfg.McastAddr)
	if err != nil {
		return nil, err
	}
	s.publisher = pub

	if cfg.NoMulticast {
		return &noMulticastSender{pub: pub}, nil
	}
	return pub, nil
}

// noMulticastSender wraps a Publisher and discards multicast sends,
// supporting --no-multicast without threading a second conditional
// through every Sender call site.
type noMulticastSender struct {
	pub *router.Publisher
}

func (n *noMulticastSender) SendToClient(c *registry.Client, m wire.Message) {
	n.pub.SendToClient(c, m)
}

func (n *noMulticastSender) SendMulticast(m wire.Message) {}

// Start launches every worker goroutine: one per partition processor, the
// output router loop, and the enabled transports. It returns once startup
// is complete; workers continue running until Shutdown is called.
func (s *Supervisor) Start() error {
	log.Info().Int("tcp_port", s.cfg.TCPPort).Int("udp_port", s.cfg.UDPPort).Str("mcast_addr", s.cfg.McastAddr).Msg("starting matching engine")

	for i := 0; i < s.partitionCount; i++ {
		p := s.processors[i]
		partition := i
		go matching.RunForever(p, s.isStopped)
		log.Info().Int("partition", partition).Msg("partition processor started")
	}

	go router.RunForever(s.outRouter, s.isStopped)
	log.Info().Msg("output router started")

	if s.udp != nil {
		go func() {
			if err := s.udp.Serve(); err != nil && !s.isStopped() {
				log.Warn().Err(err).Msg("udp receiver stopped")
			}
		}()
		log.Info().Str("addr", s.udp.Addr().String()).Msg("udp receiver started")
	}
	if s.tcp != nil {
		go func() {
			if err := s.tcp.Serve(); err != nil && !s.isStopped() {
				log.Warn().Err(err).Msg("tcp listener stopped")
			}
		}()
		log.Info().Str("addr", s.tcp.Addr().String()).Msg("tcp listener started")
	}

	return nil
}

func (s *Supervisor) isStopped() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

// Shutdown stops accepting new connections, gives queued work up to ctx's
// deadline to drain, then stops every worker and closes sockets. Order
// matters: closing sockets before draining would mean already-accepted
// client messages never finish being processed and routed.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down matching engine")

	if s.tcp != nil {
		if err := s.tcp.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing tcp listener")
		}
	}
	if s.udp != nil {
		if err := s.udp.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing udp receiver")
		}
	}

	drained := make(chan struct{})
	go func() {
		s.drainQueues()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		log.Warn().Msg("shutdown deadline reached before queues fully drained")
	}

	close(s.stopped)

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			return err
		}
	}

	log.Info().Int("clients", s.registry.Count()).Msg("matching engine stopped")
	return nil
}

// drainQueues waits for every input and output ring to empty, giving
// already-accepted messages a chance to be processed and routed before the
// processor/router goroutines are told to stop.
func (s *Supervisor) drainQueues() {
	for {
		empty := true
		seen := make(map[*queue.Ring[queue.InEnvelope]]bool)
		for _, q := range s.inputs {
			if q == nil || seen[q] {
				continue
			}
			seen[q] = true
			if q.Len() > 0 {
				empty = false
			}
		}
		seenOut := make(map[*queue.Ring[queue.OutEnvelope]]bool)
		for _, q := range s.outputs {
			if q == nil || seenOut[q] {
				continue
			}
			seenOut[q] = true
			if q.Len() > 0 {
				empty = false
			}
		}
		if empty {
			return
		}
		time.Sleep(time.Millisecond)
	}
}
