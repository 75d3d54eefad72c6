package fyers

import (
	"encoding/json"
	"fmt"
	"math"

	"volume-spike-detector/src/helpers"
	"volume-spike-detector/src/models"
)

type MessageKind int

const (
	MessageTick MessageKind = iota
	MessageControl
)

// symbolFeedType marks a symbol update. Messages without a type are
// treated the same way.
const symbolFeedType = "sf"

var controlTypes = map[string]bool{
	"cn":  true, // connection ack
	"ful": true, // full mode
	"sub": true, // subscription ack
	"ck":  true,
	"lit": true, // lite mode
}

type wireMessage struct {
	Type           string   `json:"type"`
	Symbol         string   `json:"symbol"`
	LTP            *float64 `json:"ltp"`
	VolTradedToday *float64 `json:"vol_traded_today"`
	ExchFeedTime   int64    `json:"exch_feed_time"`
}

// -----------------------------------------------------------------------------

// DecodeTick parses one feed message. Control and unknown message types come
// back as MessageControl with no error. A symbol update missing symbol, ltp
// or vol_traded_today returns a *helpers.ValidationError.
func DecodeTick(raw []byte) (models.MTick, MessageKind, error) {
	var msg wireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return models.MTick{}, MessageTick, helpers.NewValidationError(fmt.Sprintf("undecodable feed message: %v", err))
	}

	if controlTypes[msg.Type] || (msg.Type != "" && msg.Type != symbolFeedType) {
		return models.MTick{}, MessageControl, nil
	}

	switch {
	case msg.Symbol == "":
		return models.MTick{}, MessageTick, helpers.NewValidationError("tick without symbol")
	case msg.LTP == nil:
		return models.MTick{}, MessageTick, helpers.NewValidationError("tick without ltp: " + msg.Symbol)
	case msg.VolTradedToday == nil:
		return models.MTick{}, MessageTick, helpers.NewValidationError("tick without vol_traded_today: " + msg.Symbol)
	}

	vol := *msg.VolTradedToday
	if math.IsNaN(vol) || math.IsInf(vol, 0) || vol != math.Trunc(vol) {
		return models.MTick{}, MessageTick, helpers.NewValidationError(fmt.Sprintf("non-integral volume %v: %s", vol, msg.Symbol))
	}
	if math.IsNaN(*msg.LTP) || math.IsInf(*msg.LTP, 0) {
		return models.MTick{}, MessageTick, helpers.NewValidationError("non-finite ltp: " + msg.Symbol)
	}

	return models.MTick{
		Symbol:           msg.Symbol,
		Price:            *msg.LTP,
		CumulativeVolume: int64(vol),
		ExchangeTime:     msg.ExchFeedTime,
	}, MessageTick, nil
}
