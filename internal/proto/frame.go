package proto

// Frame types shared by both transports. The push stream additionally emits
// "connected"; "join_room" and "leave_room" only travel client to server on
// the duplex socket.
const (
	TypeConnected = "connected"
	TypeMessage   = "message"
	TypeJoinRoom  = "join_room"
	TypeLeaveRoom = "leave_room"
	TypeError     = "error"

	// Optional extension kinds pushed when interview content changes.
	TypeProblemAdded  = "problemAdded"
	TypeTestCaseAdded = "testCaseAdded"
)

// Sender describes the user a message originates from.
type Sender struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Image *string `json:"image,omitempty"`
}

// Frame is the wire envelope for both transports. Fields are populated
// according to Type; unknown types must be ignored by clients.
type Frame struct {
	Type      string  `json:"type"`
	RoomID    string  `json:"roomId,omitempty"`
	MessageID string  `json:"messageId,omitempty"`
	Content   string  `json:"content,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"` // ISO-8601
	From      *Sender `json:"from,omitempty"`
	Error     string  `json:"error,omitempty"`

	Problem   *Problem  `json:"problem,omitempty"`
	ProblemID string    `json:"problemId,omitempty"`
	TestCase  *TestCase `json:"testCase,omitempty"`
}

// Problem is pushed to the room when the interviewer adds a problem.
type Problem struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Score       int        `json:"score"`
	TestCases   []TestCase `json:"testCases,omitempty"`
}

// TestCase is pushed to the room when a test case is added to a problem.
type TestCase struct {
	TestCaseID string `json:"testCaseId"`
	Input      string `json:"input"`
	Output     string `json:"output"`
}

// Connected builds the initial confirmation frame for a push stream.
func Connected(roomID string) Frame {
	return Frame{Type: TypeConnected, RoomID: roomID}
}

// ErrorFrame builds an error frame for the duplex socket.
func ErrorFrame(msg string) Frame {
	return Frame{Type: TypeError, Error: msg}
}
