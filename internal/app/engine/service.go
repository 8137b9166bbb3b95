package engine

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	commandreaderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/command-reader/v1"
	eventv1 "github.com/muhammadchandra19/exchange-core/internal/domain/event/v1"
	snapshotv1 "github.com/muhammadchandra19/exchange-core/internal/domain/snapshot/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/config"
	"github.com/muhammadchandra19/exchange-core/pkg/errors"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/muhammadchandra19/exchange-core/pkg/util"
)

// EventBus is the sink commands emit into, numbered engine-wide.
type EventBus interface {
	eventv1.Sink
	Sequence() uint64
	Restore(sequence uint64)
}

// ServiceOptions configures the background routines of the service.
type ServiceOptions struct {
	SnapshotInterval    time.Duration
	SnapshotOffsetDelta int64
	// SweepInterval is how often expired orders are evicted. Zero disables the sweeper.
	SweepInterval time.Duration
	// ReadBackoff is the pause after a failed read.
	ReadBackoff time.Duration
}

// DefaultServiceOptions returns the default options.
func DefaultServiceOptions() ServiceOptions {
	return ServiceOptions{
		SnapshotInterval:    30 * time.Second,
		SnapshotOffsetDelta: 1000,
		SweepInterval:       time.Second,
		ReadBackoff:         100 * time.Millisecond,
	}
}

// ServiceOptionsFromConfig maps the engine configuration onto service options.
func ServiceOptionsFromConfig(cfg config.EngineConfig) ServiceOptions {
	opts := DefaultServiceOptions()
	opts.SnapshotInterval = cfg.SnapshotInterval
	opts.SnapshotOffsetDelta = cfg.SnapshotOffsetDelta
	opts.SweepInterval = cfg.SweepInterval
	return opts
}

// Service feeds commands from the transport into the exchange, snapshots its state
// and sweeps expired orders.
type Service struct {
	exchange      *Exchange
	commandReader commandreaderv1.Reader
	snapshotStore snapshotv1.Store
	bus           EventBus
	clock         util.Clock
	logger        logger.Interface
	opts          ServiceOptions

	// processing is held while a command, a sweep or a snapshot runs, so a snapshot
	// always matches the command offset stored with it.
	processing sync.Mutex

	mu                 sync.RWMutex
	commandOffset      int64
	lastSnapshotOffset int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a service. Call Start to restore state and begin processing.
func NewService(
	exchange *Exchange,
	commandReader commandreaderv1.Reader,
	snapshotStore snapshotv1.Store,
	bus EventBus,
	clock util.Clock,
	log logger.Interface,
	opts ServiceOptions,
) *Service {
	return &Service{
		exchange:           exchange,
		commandReader:      commandReader,
		snapshotStore:      snapshotStore,
		bus:                bus,
		clock:              clock,
		logger:             log,
		opts:               opts,
		commandOffset:      -1,
		lastSnapshotOffset: -1,
	}
}

// Start restores the last snapshot and starts the background routines.
func (s *Service) Start(ctx context.Context) error {
	if err := s.loadSnapshot(ctx); err != nil {
		return err
	}
	if err := s.commandReader.SetOffset(s.CommandOffset() + 1); err != nil {
		return err
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go s.runCommandProcessor()
	go s.runSnapshotManager()
	if s.opts.SweepInterval > 0 {
		s.wg.Add(1)
		go s.runExpirySweeper()
	}

	s.logger.Info("matching service started", logger.Field{Key: "commandOffset", Value: s.CommandOffset()})
	return nil
}

// Stop stops the routines and stores a final snapshot when commands were processed since the last one.
func (s *Service) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("matching service stop timeout exceeded")
		return ctx.Err()
	}

	if s.CommandOffset() > s.LastSnapshotOffset() {
		if err := s.createAndStoreSnapshot(ctx); err != nil {
			return err
		}
	}
	s.logger.Info("matching service stopped gracefully")
	return nil
}

func (s *Service) runCommandProcessor() {
	defer s.wg.Done()
	defer s.commandReader.Close()

	s.logger.Info("starting command processor")

	for {
		msg, cmd, err := s.commandReader.ReadMessage(s.ctx)
		if s.ctx.Err() != nil {
			s.logger.Info("command processor shutting down")
			return
		}
		if err != nil && !errors.ErrorCodeEquals(err, errors.ErrInvalidCommand) {
			s.logger.ErrorContext(s.ctx, err, logger.Field{Key: "action", Value: "read_command"})
			time.Sleep(s.opts.ReadBackoff)
			continue
		}

		s.processing.Lock()
		if err != nil {
			s.reject(s.ctx, cmd, err)
		} else {
			s.Process(s.ctx, cmd)
		}
		s.setCommandOffset(cmd.Offset)
		s.processing.Unlock()

		if err := s.commandReader.CommitMessages(s.ctx, msg); err != nil {
			s.logger.ErrorContext(s.ctx, err, logger.Field{Key: "action", Value: "commit_command"})
		}
	}
}

// Process applies one command. A failing command is published as CommandRejected.
func (s *Service) Process(ctx context.Context, cmd commandreaderv1.Command) {
	ctx = util.WithCommandID(util.WithRequestID(ctx, ""), cmd.ID)
	if trader := traderOf(cmd); trader != "" {
		ctx = util.WithTraderID(ctx, trader)
	}

	s.logger.DebugContext(ctx, "processing command",
		logger.Field{Key: "kind", Value: cmd.Kind},
		logger.Field{Key: "offset", Value: cmd.Offset},
	)
	if err := s.dispatch(ctx, cmd); err != nil {
		s.reject(ctx, cmd, err)
	}
}

func (s *Service) dispatch(ctx context.Context, cmd commandreaderv1.Command) error {
	if err := cmd.Validate(); err != nil {
		return errors.NewValidationError(errors.ErrInvalidCommand, err.Error(), "kind")
	}

	var err error
	switch cmd.Kind {
	case commandreaderv1.KindCreateInstrument:
		_, err = s.exchange.CreateInstrument(ctx, *cmd.CreateInstrument)
	case commandreaderv1.KindUpdateFees:
		_, err = s.exchange.UpdateFees(ctx, cmd.Admin.InstrumentID, cmd.Admin.MakerFeeBps, cmd.Admin.TakerFeeBps)
	case commandreaderv1.KindUpdateLimits:
		_, err = s.exchange.UpdateLimits(ctx, cmd.Admin.InstrumentID, cmd.Admin.MinOrderSize, cmd.Admin.MaxOrderSize)
	case commandreaderv1.KindDeactivateInstrument:
		_, err = s.exchange.DeactivateInstrument(ctx, cmd.Admin.InstrumentID)
	case commandreaderv1.KindPlaceLimit:
		_, err = s.exchange.PlaceLimitOrder(ctx, *cmd.PlaceOrder)
	case commandreaderv1.KindPlaceMarket:
		_, err = s.exchange.PlaceMarketOrder(ctx, *cmd.PlaceOrder)
	case commandreaderv1.KindCancel:
		_, err = s.exchange.CancelOrder(ctx, cmd.Cancel.Caller, cmd.Cancel.OrderID)
	case commandreaderv1.KindCreateRFQ:
		_, err = s.exchange.CreateRFQ(ctx, *cmd.CreateRFQ)
	case commandreaderv1.KindSubmitQuote:
		_, err = s.exchange.SubmitQuote(ctx, *cmd.SubmitQuote)
	case commandreaderv1.KindAcceptQuote:
		_, err = s.exchange.AcceptQuote(ctx, cmd.RFQAction.Caller, cmd.RFQAction.RFQID)
	case commandreaderv1.KindCancelRFQ:
		_, err = s.exchange.CancelRFQ(ctx, cmd.RFQAction.Caller, cmd.RFQAction.RFQID)
	case commandreaderv1.KindMarketData:
		_, _, err = s.exchange.UpdateMarketData(ctx, *cmd.MarketData)
	case commandreaderv1.KindResetWindow:
		_, err = s.exchange.ResetWindow(ctx, cmd.Admin.InstrumentID)
	}
	return err
}

func (s *Service) reject(ctx context.Context, cmd commandreaderv1.Command, err error) {
	rejection := eventv1.Rejection{
		CommandID: cmd.ID,
		Kind:      string(cmd.Kind),
		Code:      string(errors.GeneralInternalServerError),
		Category:  string(errors.CategoryOf(err)),
		Message:   err.Error(),
	}
	var details *errors.ErrorDetails
	if stderrors.As(err, &details) {
		rejection.Code = details.Code
	}

	fields := []logger.Field{
		{Key: "command_id", Value: cmd.ID},
		{Key: "kind", Value: cmd.Kind},
		{Key: "code", Value: rejection.Code},
		{Key: "error", Value: err.Error()},
	}
	if errors.IsFatal(err) {
		s.logger.ErrorContext(ctx, err, fields...)
	} else {
		s.logger.WarnContext(ctx, "command rejected", fields...)
	}
	s.bus.Emit(eventv1.NewRejectionEvent(rejection, instrumentOf(cmd), s.clock.Now()))
}

func instrumentOf(cmd commandreaderv1.Command) string {
	switch {
	case cmd.Admin != nil:
		return cmd.Admin.InstrumentID
	case cmd.PlaceOrder != nil:
		return cmd.PlaceOrder.InstrumentID
	case cmd.CreateRFQ != nil:
		return cmd.CreateRFQ.InstrumentID
	case cmd.MarketData != nil:
		return cmd.MarketData.InstrumentID
	}
	return ""
}

func traderOf(cmd commandreaderv1.Command) string {
	switch {
	case cmd.PlaceOrder != nil:
		return cmd.PlaceOrder.Owner
	case cmd.Cancel != nil:
		return cmd.Cancel.Caller
	case cmd.CreateRFQ != nil:
		return cmd.CreateRFQ.Creator
	case cmd.SubmitQuote != nil:
		return cmd.SubmitQuote.Dealer
	case cmd.RFQAction != nil:
		return cmd.RFQAction.Caller
	}
	return ""
}

func (s *Service) runSnapshotManager() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.SnapshotInterval)
	defer ticker.Stop()

	s.logger.Info("starting snapshot manager")

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("snapshot manager shutting down")
			return
		case <-ticker.C:
			if s.shouldCreateSnapshot() {
				if err := s.createAndStoreSnapshot(s.ctx); err != nil {
					s.logger.ErrorContext(s.ctx, err, logger.Field{Key: "action", Value: "store_snapshot"})
				}
			}
		}
	}
}

func (s *Service) runExpirySweeper() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.ctx)
		}
	}
}

// Sweep expires every order past its expiry.
func (s *Service) Sweep(ctx context.Context) {
	s.processing.Lock()
	n, err := s.exchange.ExpireDue(ctx)
	s.processing.Unlock()

	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{Key: "action", Value: "expire_orders"})
	}
	if n > 0 {
		s.logger.Debug("expired orders swept", logger.Field{Key: "count", Value: n})
	}
}

func (s *Service) shouldCreateSnapshot() bool {
	s.mu.RLock()
	currentOffset := s.commandOffset
	lastSnapshotOffset := s.lastSnapshotOffset
	s.mu.RUnlock()

	if currentOffset < 0 {
		return false
	}
	return currentOffset-lastSnapshotOffset >= s.opts.SnapshotOffsetDelta
}

func (s *Service) createAndStoreSnapshot(ctx context.Context) error {
	s.processing.Lock()
	snapshot := s.exchange.Snapshot()
	snapshot.CommandOffset = s.CommandOffset()
	snapshot.EventSequence = s.bus.Sequence()
	s.processing.Unlock()

	s.logger.Info("creating snapshot", logger.Field{Key: "commandOffset", Value: snapshot.CommandOffset})

	if err := s.snapshotStore.Store(ctx, snapshot); err != nil {
		return err
	}
	s.setLastSnapshotOffset(snapshot.CommandOffset)

	s.logger.Info("snapshot stored successfully", logger.Field{Key: "offset", Value: snapshot.CommandOffset})
	return nil
}

func (s *Service) loadSnapshot(ctx context.Context) error {
	snapshot, err := s.snapshotStore.LoadStore(ctx)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return nil
	}

	if err := s.exchange.Restore(ctx, snapshot); err != nil {
		return err
	}
	s.bus.Restore(snapshot.EventSequence)

	s.mu.Lock()
	s.commandOffset = snapshot.CommandOffset
	s.lastSnapshotOffset = snapshot.CommandOffset
	s.mu.Unlock()

	s.logger.Info("exchange restored from snapshot", logger.Field{Key: "commandOffset", Value: snapshot.CommandOffset})
	return nil
}

// CommandOffset returns the offset of the last processed command.
func (s *Service) CommandOffset() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commandOffset
}

// LastSnapshotOffset returns the command offset of the last stored snapshot.
func (s *Service) LastSnapshotOffset() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSnapshotOffset
}

func (s *Service) setCommandOffset(offset int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commandOffset = offset
}

func (s *Service) setLastSnapshotOffset(offset int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSnapshotOffset = offset
}
