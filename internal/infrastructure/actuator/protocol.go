package actuator

import (
	"fmt"
	"strconv"
	"strings"
)

// The feeder speaks a newline-terminated ASCII protocol:
//
//	-> MOTOR:<1..5>
//	<- ACK:START:<n>
//	<- ACK:STOP:<n>
//	<- ERR:INVALID_MOTOR
//	<- ERR:UNKNOWN_COMMAND:<text>
//	-> PING
//	<- PONG
//	<- READY            (once, after connect/reset)
//
// The parser is a plain classifier over single lines; framing and reconnect
// live in the link, not here.

// MessageKind classifies a line received from the device.
type MessageKind int

const (
	MsgReady MessageKind = iota
	MsgPong
	MsgAckStart
	MsgAckStop
	MsgErrInvalidMotor
	MsgErrUnknownCommand
)

func (k MessageKind) String() string {
	switch k {
	case MsgReady:
		return "READY"
	case MsgPong:
		return "PONG"
	case MsgAckStart:
		return "ACK:START"
	case MsgAckStop:
		return "ACK:STOP"
	case MsgErrInvalidMotor:
		return "ERR:INVALID_MOTOR"
	case MsgErrUnknownCommand:
		return "ERR:UNKNOWN_COMMAND"
	}
	return "UNKNOWN"
}

// Message is one parsed device line.
type Message struct {
	Kind  MessageKind
	Motor int    // 1-based motor id, set for acks
	Text  string // detail for ERR:UNKNOWN_COMMAND
}

// ParseLine classifies a single device line. The trailing newline must
// already be stripped; a trailing carriage return is tolerated.
func ParseLine(line string) (Message, error) {
	line = strings.TrimSuffix(line, "\r")
	switch {
	case line == "READY":
		return Message{Kind: MsgReady}, nil
	case line == "PONG":
		return Message{Kind: MsgPong}, nil
	case line == "ERR:INVALID_MOTOR":
		return Message{Kind: MsgErrInvalidMotor}, nil
	case strings.HasPrefix(line, "ERR:UNKNOWN_COMMAND:"):
		return Message{Kind: MsgErrUnknownCommand, Text: strings.TrimPrefix(line, "ERR:UNKNOWN_COMMAND:")}, nil
	case strings.HasPrefix(line, "ACK:START:"):
		return parseAck(MsgAckStart, strings.TrimPrefix(line, "ACK:START:"))
	case strings.HasPrefix(line, "ACK:STOP:"):
		return parseAck(MsgAckStop, strings.TrimPrefix(line, "ACK:STOP:"))
	}
	return Message{}, fmt.Errorf("unrecognized device line %q", line)
}

func parseAck(kind MessageKind, rest string) (Message, error) {
	motor, err := strconv.Atoi(rest)
	if err != nil || motor < 1 {
		return Message{}, fmt.Errorf("malformed ack id %q", rest)
	}
	return Message{Kind: kind, Motor: motor}, nil
}

// MotorCommand formats the command line for a 0-based motor index.
func MotorCommand(motorIndex int) string {
	return fmt.Sprintf("MOTOR:%d", motorIndex+1)
}
