package job

type Kind int

const (
	Partial Kind = iota
	Final
	Error
)

func (k Kind) String() string {
	switch k {
	case Partial:
		return "partial"
	case Final:
		return "final"
	case Error:
		return "error"
	}
	return "unknown"
}

// Event is one progress report from a worker. Progress is in [0,100].
type Event struct {
	Kind     Kind
	Text     string
	Progress float64
	Err      error
}
