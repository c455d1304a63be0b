package model

// SupplyChainEvent is a single chain-of-custody record attached to a product.
// Timestamps are caller-supplied logical times, not wall-clock values.
type SupplyChainEvent struct {
	EventType string `json:"event_type" cbor:"1,keyasint"`
	Timestamp int64  `json:"timestamp"  cbor:"2,keyasint"`
	Location  string `json:"location"   cbor:"3,keyasint"`
	Handler   string `json:"handler"    cbor:"4,keyasint"`
}

// VerificationResult is the outcome of one authenticity check.
type VerificationResult struct {
	Timestamp       int64   `json:"timestamp"        cbor:"1,keyasint"`
	Location        string  `json:"location"         cbor:"2,keyasint"`
	IsAuthentic     bool    `json:"is_authentic"     cbor:"3,keyasint"`
	ConfidenceScore float64 `json:"confidence_score" cbor:"4,keyasint"`
	VerificationID  string  `json:"verification_id"  cbor:"5,keyasint"`
}

// Product is the registry record for one physical product.
//
// Registration fields never change after creation. Events and Verifications
// only grow, in call order.
type Product struct {
	ProductID             string               `json:"product_id"             cbor:"1,keyasint"`
	ProductType           string               `json:"product_type"           cbor:"2,keyasint"`
	Producer              string               `json:"producer"               cbor:"3,keyasint"`
	RegistrationTimestamp int64                `json:"registration_timestamp" cbor:"4,keyasint"`
	RegistrationLocation  string               `json:"registration_location"  cbor:"5,keyasint"`
	Events                []SupplyChainEvent   `json:"events"                 cbor:"6,keyasint"`
	Verifications         []VerificationResult `json:"verifications"          cbor:"7,keyasint"`
}

// Clone returns a deep copy of p. Slices are copied so the result shares no
// backing arrays with p.
func (p *Product) Clone() *Product {
	cp := *p
	cp.Events = make([]SupplyChainEvent, len(p.Events))
	copy(cp.Events, p.Events)
	cp.Verifications = make([]VerificationResult, len(p.Verifications))
	copy(cp.Verifications, p.Verifications)
	return &cp
}

// RegisterRequest is the payload for creating a new product registration.
type RegisterRequest struct {
	ProductID   string `json:"product_id"   binding:"required"`
	ProductType string `json:"product_type"`
	Producer    string `json:"producer"`
	Timestamp   int64  `json:"timestamp"`
	Location    string `json:"location"`
}

// AddEventRequest is the payload for appending a supply-chain event.
type AddEventRequest struct {
	EventType string `json:"event_type"`
	Timestamp int64  `json:"timestamp"`
	Location  string `json:"location"`
	Handler   string `json:"handler"`
}

// VerifyRequest is the payload for an authenticity verification.
type VerifyRequest struct {
	ImageHash string `json:"image_hash"`
	Timestamp int64  `json:"timestamp"`
	Location  string `json:"location"`
}

// ErrValidation is returned by service methods when the caller supplies invalid
// input. Handlers map it to 400 Bad Request.
type ErrValidation struct{ Msg string }

func (e *ErrValidation) Error() string { return e.Msg }
