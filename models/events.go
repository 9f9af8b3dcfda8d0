package models

import "time"

// Topic identifies an event stream on the bus
type Topic string

const (
	TopicMarketData         Topic = "MARKET_DATA"
	TopicDecisionReady      Topic = "DECISION_READY"
	TopicUserDecision       Topic = "USER_DECISION"
	TopicTradeCompleted     Topic = "TRADE_COMPLETED"
	TopicManualCloseRequest Topic = "MANUAL_CLOSE_REQUEST"
	TopicOrderFilled        Topic = "ORDER_FILLED"
	TopicSystemPause        Topic = "SYSTEM_PAUSE"
	TopicSystemResume       Topic = "SYSTEM_RESUME"
)

// Event is the unit passed through the bus
type Event struct {
	Topic     Topic
	Payload   any
	Timestamp time.Time
}

// UserAction is what the user did with a decision
type UserAction string

const (
	ActionEnter    UserAction = "ENTER"
	ActionSkip     UserAction = "SKIP"
	ActionRemind   UserAction = "REMIND"
	ActionOpenTV   UserAction = "OPEN_TV"
	ActionVoteUp   UserAction = "VOTE_UP"
	ActionVoteDown UserAction = "VOTE_DOWN"
)

// UserDecision records a user's response to a FinalDecision
type UserDecision struct {
	DecisionID string     `json:"decision_id"`
	Action     UserAction `json:"action"`
	Timestamp  time.Time  `json:"timestamp"`
	ChatID     string     `json:"chat_id"`
	MessageID  int64      `json:"message_id,omitempty"`
	Note       string     `json:"note,omitempty"`
}

// CloseAllTrades is the TradeID sentinel that closes every open position.
const CloseAllTrades = "ALL"

// ManualCloseRequest asks the portfolio manager to force-close a position
type ManualCloseRequest struct {
	TradeID string `json:"trade_id"`
	Symbol  string `json:"symbol,omitempty"`
	ChatID  string `json:"chat_id,omitempty"`
}

// OrderFilled announces a (virtual) position open for downstream consumers
type OrderFilled struct {
	OrderID    string         `json:"order_id"`
	Instrument string         `json:"instrument"`
	Units      float64        `json:"units"`
	Direction  TradeDirection `json:"direction"`
	Price      float64        `json:"price"`
	ExecutedAt time.Time      `json:"executed_at"`
	StrategyID string         `json:"strategy_id"`
	Confidence float64        `json:"confidence"`
}
