package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arcfin/loanledger/internal/domain"
	"github.com/arcfin/loanledger/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Verifier answers counterparty KYC questions from the external entity
// directory. Implementations must return a wrapped ErrDirectoryUnavailable
// when the directory cannot be reached, never a fabricated verdict.
type Verifier interface {
	Verify(ctx context.Context, entityID uuid.UUID) (*domain.KYCResult, error)
}

// TradeService runs the secondary-trade lifecycle: validation, booking,
// confirmation, settlement and close. Settlement is the only phase that
// moves position amounts, and it runs under the facility row lock like
// every other multi-row mutation.
type TradeService struct {
	db           *sqlx.DB
	verifier     Verifier
	facilityRepo *repository.FacilityRepository
	positionRepo *repository.PositionRepository
	tradeRepo    *repository.TradeRepository
	historyRepo  *repository.HistoryRepository
}

// NewTradeService creates a TradeService.
func NewTradeService(
	db *sqlx.DB,
	verifier Verifier,
	facilityRepo *repository.FacilityRepository,
	positionRepo *repository.PositionRepository,
	tradeRepo *repository.TradeRepository,
	historyRepo *repository.HistoryRepository,
) *TradeService {
	return &TradeService{
		db:           db,
		verifier:     verifier,
		facilityRepo: facilityRepo,
		positionRepo: positionRepo,
		tradeRepo:    tradeRepo,
		historyRepo:  historyRepo,
	}
}

// ValidateTrade runs the read-only validation phase and reports the verdict
// without mutating anything. Business failures come back inside the
// TradeValidation; only infrastructure problems (database, entity directory)
// surface as errors.
func (s *TradeService) ValidateTrade(ctx context.Context, req domain.TradeRequest) (*domain.TradeValidation, error) {
	seller, err := s.verifier.Verify(ctx, req.SellerLenderID)
	if err != nil {
		return nil, fmt.Errorf("trade_service.ValidateTrade: verify seller: %w", err)
	}
	buyer, err := s.verifier.Verify(ctx, req.BuyerLenderID)
	if err != nil {
		return nil, fmt.Errorf("trade_service.ValidateTrade: verify buyer: %w", err)
	}

	facility, sellerPos, err := s.loadTradeState(ctx, req.FacilityID, req.SellerLenderID)
	if err != nil {
		return nil, err
	}

	v := domain.ValidateTrade(seller, buyer, facility, sellerPos, req.ParAmount, req.SettlementDate, time.Now())
	return &v, nil
}

// BookTrade validates and, if valid, books a PENDING trade. The validation
// verdict's message becomes the ValidationError reason on rejection, so the
// caller sees the same text either way.
func (s *TradeService) BookTrade(ctx context.Context, req domain.TradeRequest) (_ *domain.Trade, err error) {
	seller, err := s.verifier.Verify(ctx, req.SellerLenderID)
	if err != nil {
		return nil, fmt.Errorf("trade_service.BookTrade: verify seller: %w", err)
	}
	buyer, err := s.verifier.Verify(ctx, req.BuyerLenderID)
	if err != nil {
		return nil, fmt.Errorf("trade_service.BookTrade: verify buyer: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("trade_service.BookTrade: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	facility, err := s.facilityRepo.GetByIDForUpdate(ctx, tx, req.FacilityID)
	if err != nil {
		return nil, fmt.Errorf("trade_service.BookTrade: get facility: %w", err)
	}
	sellerPos, err := s.positionRepo.GetByFacilityAndLender(ctx, tx, req.FacilityID, req.SellerLenderID)
	if err != nil && !errors.Is(err, domain.ErrPositionNotFound) {
		return nil, fmt.Errorf("trade_service.BookTrade: get seller position: %w", err)
	}

	if v := domain.ValidateTrade(seller, buyer, facility, sellerPos, req.ParAmount, req.SettlementDate, time.Now()); !v.IsValid {
		return nil, domain.Validationf("%s", v.Message)
	}

	now := time.Now().UTC()
	trade := &domain.Trade{
		ID:               uuid.New(),
		FacilityID:       req.FacilityID,
		SellerLenderID:   req.SellerLenderID,
		BuyerLenderID:    req.BuyerLenderID,
		TradeDate:        req.TradeDate,
		SettlementDate:   req.SettlementDate,
		ParAmount:        req.ParAmount,
		Price:            req.Price,
		SettlementAmount: domain.SettlementAmountFor(req.ParAmount, req.Price),
		Status:           domain.TradePending,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err = s.tradeRepo.Create(ctx, tx, trade); err != nil {
		return nil, fmt.Errorf("trade_service.BookTrade: create trade: %w", err)
	}

	tradeID := trade.ID
	th := &domain.TransactionHistory{
		ID:           uuid.New(),
		FacilityID:   req.FacilityID,
		TradeID:      &tradeID,
		ActivityType: domain.ActivityTradeCreated,
		Amount:       req.ParAmount,
		Description: fmt.Sprintf("Trade booked: %s par at %s",
			req.ParAmount.StringFixed(2), req.Price.StringFixed(4)),
		ActorID:   req.ActorID,
		CreatedAt: now,
	}
	if err = s.historyRepo.AppendTransaction(ctx, tx, th); err != nil {
		return nil, fmt.Errorf("trade_service.BookTrade: transaction history: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("trade_service.BookTrade: commit: %w", err)
	}
	return trade, nil
}

// ConfirmTrade moves a trade PENDING → CONFIRMED. The status guard in the
// repository makes a double confirm surface as ErrVersionConflict rather
// than silently re-applying.
func (s *TradeService) ConfirmTrade(ctx context.Context, id uuid.UUID) (_ *domain.Trade, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("trade_service.ConfirmTrade: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	trade, err := s.tradeRepo.GetByIDTx(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("trade_service.ConfirmTrade: get trade: %w", err)
	}
	if !trade.Status.CanTransitionTo(domain.TradeConfirmed) {
		return nil, &domain.StateTransitionError{
			Entity: "trade", From: string(trade.Status), To: string(domain.TradeConfirmed),
		}
	}
	if err = s.tradeRepo.Transition(ctx, tx, id, domain.TradePending, domain.TradeConfirmed, nil); err != nil {
		return nil, fmt.Errorf("trade_service.ConfirmTrade: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("trade_service.ConfirmTrade: commit: %w", err)
	}
	trade.Status = domain.TradeConfirmed
	return trade, nil
}

// SettleTrade settles a CONFIRMED trade: it moves parAmount of commitment
// from the seller's position to the buyer's, splitting the transfer across
// drawn/undrawn in the seller's current proportions, creates the buyer's
// position if the buyer holds none, and marks the trade SETTLED. The seller
// position goes COMPLETED when fully transferred.
func (s *TradeService) SettleTrade(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (_ *domain.Trade, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("trade_service.SettleTrade: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	trade, err := s.tradeRepo.GetByIDTx(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("trade_service.SettleTrade: get trade: %w", err)
	}
	if !trade.Status.CanTransitionTo(domain.TradeSettled) {
		return nil, &domain.StateTransitionError{
			Entity: "trade", From: string(trade.Status), To: string(domain.TradeSettled),
		}
	}

	facility, err := s.facilityRepo.GetByIDForUpdate(ctx, tx, trade.FacilityID)
	if err != nil {
		return nil, fmt.Errorf("trade_service.SettleTrade: get facility: %w", err)
	}
	if !facility.IsActive() {
		return nil, domain.Validationf("facility is not active")
	}

	sellerPos, err := s.positionRepo.GetByFacilityAndLender(ctx, tx, trade.FacilityID, trade.SellerLenderID)
	if err != nil {
		return nil, fmt.Errorf("trade_service.SettleTrade: get seller position: %w", err)
	}
	if !sellerPos.IsActive() {
		return nil, domain.Validationf("seller holds no active position in this facility")
	}
	// Re-check under the lock: the seller may have shrunk since booking.
	if sellerPos.CommitmentAmount.LessThan(trade.ParAmount) {
		return nil, domain.Validationf("insufficient position: par amount exceeds seller commitment")
	}

	// Transfer par in the seller's drawn/undrawn proportions so both books
	// stay balanced, and move share pro-rata with commitment.
	var drawnMoved decimal.Decimal
	if sellerPos.CommitmentAmount.IsPositive() {
		drawnMoved = sellerPos.DrawnAmount.Mul(trade.ParAmount).
			Div(sellerPos.CommitmentAmount).RoundDown(2)
	}
	undrawnMoved := trade.ParAmount.Sub(drawnMoved)
	shareMoved := sellerPos.Share.Mul(trade.ParAmount).Div(sellerPos.CommitmentAmount)

	now := time.Now().UTC()
	tradeID := trade.ID

	sellerPrev := sellerPos.CommitmentAmount
	sellerPos.CommitmentAmount = sellerPos.CommitmentAmount.Sub(trade.ParAmount)
	sellerPos.DrawnAmount = sellerPos.DrawnAmount.Sub(drawnMoved)
	sellerPos.UndrawnAmount = sellerPos.UndrawnAmount.Sub(undrawnMoved)
	sellerPos.Share = sellerPos.Share.Sub(shareMoved)
	if sellerPos.CommitmentAmount.IsZero() {
		sellerPos.Status = domain.PositionCompleted
	}
	if err = s.positionRepo.UpdateAmounts(ctx, tx, sellerPos); err != nil {
		return nil, fmt.Errorf("trade_service.SettleTrade: update seller position: %w", err)
	}
	if err = s.historyRepo.AppendPositionHistory(ctx, tx, &domain.FacilityPositionHistory{
		ID:             uuid.New(),
		FacilityID:     trade.FacilityID,
		PositionID:     sellerPos.ID,
		LenderID:       sellerPos.LenderID,
		ActivityType:   domain.ActivityTradeSettled,
		PreviousAmount: sellerPrev,
		NewAmount:      sellerPos.CommitmentAmount,
		ChangeAmount:   trade.ParAmount.Neg(),
		RefID:          &tradeID,
		ActorID:        actorID,
		CreatedAt:      now,
	}); err != nil {
		return nil, fmt.Errorf("trade_service.SettleTrade: seller history: %w", err)
	}

	buyerPos, err := s.positionRepo.GetByFacilityAndLender(ctx, tx, trade.FacilityID, trade.BuyerLenderID)
	switch {
	case err == nil:
		if !buyerPos.IsActive() {
			return nil, domain.Validationf("buyer position is not active")
		}
		buyerPrev := buyerPos.CommitmentAmount
		buyerPos.CommitmentAmount = buyerPos.CommitmentAmount.Add(trade.ParAmount)
		buyerPos.DrawnAmount = buyerPos.DrawnAmount.Add(drawnMoved)
		buyerPos.UndrawnAmount = buyerPos.UndrawnAmount.Add(undrawnMoved)
		buyerPos.Share = buyerPos.Share.Add(shareMoved)
		if err = s.positionRepo.UpdateAmounts(ctx, tx, buyerPos); err != nil {
			return nil, fmt.Errorf("trade_service.SettleTrade: update buyer position: %w", err)
		}
		if err = s.historyRepo.AppendPositionHistory(ctx, tx, &domain.FacilityPositionHistory{
			ID:             uuid.New(),
			FacilityID:     trade.FacilityID,
			PositionID:     buyerPos.ID,
			LenderID:       buyerPos.LenderID,
			ActivityType:   domain.ActivityTradeSettled,
			PreviousAmount: buyerPrev,
			NewAmount:      buyerPos.CommitmentAmount,
			ChangeAmount:   trade.ParAmount,
			RefID:          &tradeID,
			ActorID:        actorID,
			CreatedAt:      now,
		}); err != nil {
			return nil, fmt.Errorf("trade_service.SettleTrade: buyer history: %w", err)
		}
	case errors.Is(err, domain.ErrPositionNotFound):
		buyerPos = &domain.Position{
			ID:               uuid.New(),
			FacilityID:       trade.FacilityID,
			LenderID:         trade.BuyerLenderID,
			CommitmentAmount: trade.ParAmount,
			DrawnAmount:      drawnMoved,
			UndrawnAmount:    undrawnMoved,
			Share:            shareMoved,
			Status:           domain.PositionActive,
			Version:          1,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err = s.positionRepo.Create(ctx, tx, buyerPos); err != nil {
			return nil, fmt.Errorf("trade_service.SettleTrade: create buyer position: %w", err)
		}
		if err = s.historyRepo.AppendPositionHistory(ctx, tx, &domain.FacilityPositionHistory{
			ID:             uuid.New(),
			FacilityID:     trade.FacilityID,
			PositionID:     buyerPos.ID,
			LenderID:       buyerPos.LenderID,
			ActivityType:   domain.ActivityTradeSettled,
			PreviousAmount: decimal.Zero,
			NewAmount:      buyerPos.CommitmentAmount,
			ChangeAmount:   trade.ParAmount,
			RefID:          &tradeID,
			ActorID:        actorID,
			CreatedAt:      now,
		}); err != nil {
			return nil, fmt.Errorf("trade_service.SettleTrade: buyer history: %w", err)
		}
	default:
		return nil, fmt.Errorf("trade_service.SettleTrade: get buyer position: %w", err)
	}

	th := &domain.TransactionHistory{
		ID:           uuid.New(),
		FacilityID:   trade.FacilityID,
		TradeID:      &tradeID,
		ActivityType: domain.ActivityTradeSettled,
		Amount:       trade.SettlementAmount,
		Description: fmt.Sprintf("Trade settled: %s par for %s",
			trade.ParAmount.StringFixed(2), trade.SettlementAmount.StringFixed(2)),
		ActorID:   actorID,
		CreatedAt: now,
	}
	if err = s.historyRepo.AppendTransaction(ctx, tx, th); err != nil {
		return nil, fmt.Errorf("trade_service.SettleTrade: transaction history: %w", err)
	}

	settledAt := now
	if err = s.tradeRepo.Transition(ctx, tx, id, domain.TradeConfirmed, domain.TradeSettled, &settledAt); err != nil {
		return nil, fmt.Errorf("trade_service.SettleTrade: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("trade_service.SettleTrade: commit: %w", err)
	}

	trade.Status = domain.TradeSettled
	trade.SettledAt = &settledAt
	return trade, nil
}

// SettleDueTrades settles every confirmed trade whose settlement date has
// arrived. Each trade settles in its own transaction; one failure does not
// block the rest. Returns the number settled and the first hard error.
func (s *TradeService) SettleDueTrades(ctx context.Context, asOf time.Time) (int, error) {
	const batch = 100

	due, err := s.tradeRepo.ListDueForSettlement(ctx, asOf, batch)
	if err != nil {
		return 0, fmt.Errorf("trade_service.SettleDueTrades: %w", err)
	}

	settled := 0
	for _, trade := range due {
		if _, err := s.SettleTrade(ctx, trade.ID, uuid.Nil); err != nil {
			// Concurrent settles, operator closes and trades blocked by a
			// shrunken seller position stay pending for the next sweep or
			// operator action; only infrastructure failures abort the batch.
			if errors.Is(err, domain.ErrVersionConflict) ||
				domain.IsStateTransition(err) || domain.IsValidation(err) {
				continue
			}
			return settled, fmt.Errorf("trade_service.SettleDueTrades: trade %s: %w", trade.ID, err)
		}
		settled++
	}
	return settled, nil
}

// CloseTrade moves a trade from any non-closed state to CLOSED.
func (s *TradeService) CloseTrade(ctx context.Context, id uuid.UUID) (_ *domain.Trade, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("trade_service.CloseTrade: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	trade, err := s.tradeRepo.GetByIDTx(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("trade_service.CloseTrade: get trade: %w", err)
	}
	if !trade.Status.CanTransitionTo(domain.TradeClosed) {
		return nil, &domain.StateTransitionError{
			Entity: "trade", From: string(trade.Status), To: string(domain.TradeClosed),
		}
	}
	if err = s.tradeRepo.Transition(ctx, tx, id, trade.Status, domain.TradeClosed, nil); err != nil {
		return nil, fmt.Errorf("trade_service.CloseTrade: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("trade_service.CloseTrade: commit: %w", err)
	}
	trade.Status = domain.TradeClosed
	return trade, nil
}

// GetTrade returns a trade by ID.
func (s *TradeService) GetTrade(ctx context.Context, id uuid.UUID) (*domain.Trade, error) {
	return s.tradeRepo.GetByID(ctx, id)
}

// ListTrades returns every trade booked against a facility.
func (s *TradeService) ListTrades(ctx context.Context, facilityID uuid.UUID) ([]*domain.Trade, error) {
	ts, err := s.tradeRepo.ListByFacility(ctx, facilityID)
	if err != nil {
		return nil, fmt.Errorf("trade_service.ListTrades: %w", err)
	}
	return ts, nil
}

// loadTradeState reads the facility and the seller's position for the
// read-only validation phase. A missing seller position is not an error
// here; the validator reports it as an invalid trade.
func (s *TradeService) loadTradeState(ctx context.Context, facilityID, sellerLenderID uuid.UUID) (*domain.Facility, *domain.Position, error) {
	facility, err := s.facilityRepo.GetByID(ctx, facilityID)
	if err != nil {
		return nil, nil, fmt.Errorf("trade_service.loadTradeState: get facility: %w", err)
	}
	positions, err := s.positionRepo.ListByFacility(ctx, facilityID)
	if err != nil {
		return nil, nil, fmt.Errorf("trade_service.loadTradeState: list positions: %w", err)
	}
	var sellerPos *domain.Position
	for _, p := range positions {
		if p.LenderID == sellerLenderID {
			sellerPos = p
			break
		}
	}
	return facility, sellerPos, nil
}
