package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/andrewqian/spreadbot/internal/crypto"
	"github.com/andrewqian/spreadbot/internal/domain"
)

// Exchange submits IOC orders for one coin. One instance exists per venue
// side; both share the signer and endpoint. Ambiguous outcomes (transport
// errors, timeouts, unparseable replies) surface as LegUnknown so the
// coordinator never assumes success.
type Exchange struct {
	baseURL    string
	coin       string
	signer     *crypto.Signer
	isMainnet  bool
	szDecimals int
	http       *http.Client
	clock      domain.Clock
	logger     *slog.Logger
}

// NewExchange creates an order submitter for coin. szDecimals controls how
// the size is rendered on the wire.
func NewExchange(baseURL, coin string, signer *crypto.Signer, isMainnet bool, szDecimals int, clock domain.Clock, logger *slog.Logger) *Exchange {
	if clock == nil {
		clock = time.Now
	}
	return &Exchange{
		baseURL:    baseURL,
		coin:       coin,
		signer:     signer,
		isMainnet:  isMainnet,
		szDecimals: szDecimals,
		http:       &http.Client{Timeout: requestTimeout},
		clock:      clock,
		logger:     logger.With(slog.String("component", "exchange"), slog.String("coin", coin)),
	}
}

// Submit implements domain.OrderSubmitter: one signed IOC order per leg.
func (e *Exchange) Submit(ctx context.Context, leg domain.LegOrder) (domain.LegResult, error) {
	action := orderAction{
		Type: "order",
		Orders: []wireOrder{{
			Asset:      e.coin,
			IsBuy:      leg.IsBuy,
			Price:      "0", // market-like: cross the book at any price
			Size:       strconv.FormatFloat(leg.Quantity, 'f', e.szDecimals, 64),
			ReduceOnly: leg.ReduceOnly,
			Type:       orderType{Limit: limitType{Tif: "Ioc"}},
			Cloid:      cloidFromClientID(leg.ClientID),
		}},
		Grouping: "na",
	}

	// The signature covers the msgpack serialization of the action; the HTTP
	// body below stays JSON.
	actionBytes, err := msgpack.Marshal(action)
	if err != nil {
		return domain.LegResult{}, fmt.Errorf("hyperliquid: pack action: %w", err)
	}

	nonce := uint64(e.clock().UnixMilli())
	sigHex, err := e.signer.SignAction(actionBytes, nonce, e.isMainnet)
	if err != nil {
		return domain.LegResult{}, fmt.Errorf("hyperliquid: sign action: %w", err)
	}
	sig, err := splitSignature(sigHex)
	if err != nil {
		return domain.LegResult{}, fmt.Errorf("hyperliquid: %w", err)
	}

	reqBody, err := json.Marshal(exchangeRequest{
		Action:    action,
		Nonce:     nonce,
		Signature: sig,
	})
	if err != nil {
		return domain.LegResult{}, fmt.Errorf("hyperliquid: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/exchange", bytes.NewReader(reqBody))
	if err != nil {
		return domain.LegResult{}, fmt.Errorf("hyperliquid: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		// Timeout or transport failure: the venue may or may not have seen
		// the order.
		return domain.LegResult{Outcome: domain.LegUnknown, Reason: err.Error()}, fmt.Errorf("hyperliquid: submit: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return domain.LegResult{Outcome: domain.LegUnknown, Reason: err.Error()}, fmt.Errorf("hyperliquid: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.LegResult{Outcome: domain.LegUnknown, Reason: string(raw)},
			fmt.Errorf("hyperliquid: submit: status %d: %s", resp.StatusCode, raw)
	}

	return classifyResponse(raw)
}

// classifyResponse maps the venue reply onto a leg outcome.
func classifyResponse(raw []byte) (domain.LegResult, error) {
	var reply exchangeResponse
	if err := json.Unmarshal(raw, &reply); err != nil {
		return domain.LegResult{Outcome: domain.LegUnknown, Reason: string(raw)},
			fmt.Errorf("hyperliquid: unparseable response: %w", err)
	}

	if reply.Status != "ok" {
		return domain.LegResult{Outcome: domain.LegRejected, Reason: string(raw)}, nil
	}
	statuses := reply.Response.Data.Statuses
	if len(statuses) != 1 {
		return domain.LegResult{Outcome: domain.LegUnknown, Reason: string(raw)},
			fmt.Errorf("hyperliquid: expected 1 status, got %d", len(statuses))
	}

	st := statuses[0]
	switch {
	case st.Filled != nil:
		px, err := strconv.ParseFloat(st.Filled.AvgPx, 64)
		if err != nil {
			return domain.LegResult{Outcome: domain.LegUnknown, Reason: string(raw)},
				fmt.Errorf("hyperliquid: parse avgPx %q: %w", st.Filled.AvgPx, err)
		}
		sz, err := strconv.ParseFloat(st.Filled.TotalSz, 64)
		if err != nil {
			return domain.LegResult{Outcome: domain.LegUnknown, Reason: string(raw)},
				fmt.Errorf("hyperliquid: parse totalSz %q: %w", st.Filled.TotalSz, err)
		}
		return domain.LegResult{Outcome: domain.LegFilled, FilledPrice: px, FilledQty: sz}, nil
	case st.Error != "":
		return domain.LegResult{Outcome: domain.LegRejected, Reason: st.Error}, nil
	default:
		// An IOC order must never rest; treat anything else as ambiguous.
		return domain.LegResult{Outcome: domain.LegUnknown, Reason: string(raw)}, nil
	}
}

// cloidFromClientID renders a UUID as the venue's 128-bit hex client order
// id.
func cloidFromClientID(clientID string) string {
	hex := strings.ReplaceAll(clientID, "-", "")
	if len(hex) != 32 {
		return ""
	}
	return "0x" + hex
}

// splitSignature splits a hex-encoded 65-byte r||s||v signature.
func splitSignature(sigHex string) (rsvSignature, error) {
	h := strings.TrimPrefix(sigHex, "0x")
	if len(h) != 130 {
		return rsvSignature{}, fmt.Errorf("signature length %d, want 130 hex chars", len(h))
	}
	v, err := strconv.ParseUint(h[128:], 16, 8)
	if err != nil {
		return rsvSignature{}, fmt.Errorf("parse v byte: %w", err)
	}
	return rsvSignature{
		R: "0x" + h[:64],
		S: "0x" + h[64:128],
		V: int(v),
	}, nil
}
