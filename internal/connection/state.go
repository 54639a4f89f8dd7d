package connection

// ReadState is the state of a connection's read-protocol state machine
// (spec.md §4.3).
type ReadState int

const (
	InitRead ReadState = iota
	Loading
	Idle
	WaitingForSASL
	WaitingForGet
	WaitingForGetData
	WaitingForEnd
	WaitingForSet
	WaitingForDelete
)

func (s ReadState) String() string {
	switch s {
	case InitRead:
		return "INIT_READ"
	case Loading:
		return "LOADING"
	case Idle:
		return "IDLE"
	case WaitingForSASL:
		return "WAITING_FOR_SASL"
	case WaitingForGet:
		return "WAITING_FOR_GET"
	case WaitingForGetData:
		return "WAITING_FOR_GET_DATA"
	case WaitingForEnd:
		return "WAITING_FOR_END"
	case WaitingForSet:
		return "WAITING_FOR_SET"
	case WaitingForDelete:
		return "WAITING_FOR_DELETE"
	default:
		return "UNKNOWN"
	}
}

// WriteState is the state of a connection's write-pacing state machine
// (spec.md §4.4).
type WriteState int

const (
	InitWrite WriteState = iota
	Issuing
	WaitingForTime
	WaitingForOpq
)

func (s WriteState) String() string {
	switch s {
	case InitWrite:
		return "INIT_WRITE"
	case Issuing:
		return "ISSUING"
	case WaitingForTime:
		return "WAITING_FOR_TIME"
	case WaitingForOpq:
		return "WAITING_FOR_OPQ"
	default:
		return "UNKNOWN"
	}
}
