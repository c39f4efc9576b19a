package solbc

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

// AnchorError represents an error from Anchor framework
type AnchorError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

// Analysis is a structured view of an RPC or transaction error.
type Analysis struct {
	Type             string       `json:"type"`
	Code             int          `json:"code,omitempty"`
	Message          string       `json:"message"`
	SimulationFailed bool         `json:"simulation_failed,omitempty"`
	Logs             []string     `json:"logs,omitempty"`
	Anchor           *AnchorError `json:"anchor_error,omitempty"`
	InstructionError interface{}  `json:"instruction_error,omitempty"`
}

// Permanent reports whether resending the same transaction cannot succeed.
func (a Analysis) Permanent() bool {
	return a.SimulationFailed || a.Anchor != nil
}

// Fields returns the analysis as zap fields.
func (a Analysis) Fields() []zap.Field {
	fields := []zap.Field{
		zap.String("error_type", a.Type),
		zap.String("error_message", a.Message),
	}
	if a.Code != 0 {
		fields = append(fields, zap.Int("error_code", a.Code))
	}
	if a.Anchor != nil {
		fields = append(fields,
			zap.Int("anchor_code", a.Anchor.Code),
			zap.String("anchor_name", a.Anchor.Name),
			zap.String("anchor_msg", a.Anchor.Msg))
	}
	if len(a.Logs) > 0 {
		fields = append(fields, zap.Strings("program_logs", a.Logs))
	}
	return fields
}

// ErrorAnalyzer provides methods to analyze Solana transaction errors
type ErrorAnalyzer struct {
	logger *zap.Logger
}

// NewErrorAnalyzer creates a new ErrorAnalyzer instance
func NewErrorAnalyzer(logger *zap.Logger) *ErrorAnalyzer {
	return &ErrorAnalyzer{
		logger: logger.Named("error-analyzer"),
	}
}

// Analyze extracts detailed information from err, looking through wrapping.
func (ea *ErrorAnalyzer) Analyze(err error) Analysis {
	if err == nil {
		return Analysis{Type: "none", Message: "no error provided"}
	}

	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return Analysis{Type: "generic_error", Message: err.Error()}
	}

	result := Analysis{
		Type:    "rpc_error",
		Code:    rpcErr.Code,
		Message: rpcErr.Message,
	}

	if !strings.Contains(rpcErr.Message, "Transaction simulation failed") {
		return result
	}
	result.SimulationFailed = true

	dataMap, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return result
	}

	if logs, ok := dataMap["logs"].([]interface{}); ok {
		for _, entry := range logs {
			logStr, ok := entry.(string)
			if !ok {
				continue
			}
			result.Logs = append(result.Logs, logStr)

			if strings.Contains(logStr, "AnchorError occurred") {
				anchorErr := parseAnchorErrorLog(logStr)
				result.Anchor = &anchorErr

				ea.logger.Warn("Anchor error detected",
					zap.Int("code", anchorErr.Code),
					zap.String("name", anchorErr.Name),
					zap.String("message", anchorErr.Msg))
			}
		}
	}

	if instrErr, ok := dataMap["err"]; ok && instrErr != nil {
		result.InstructionError = instrErr
	}

	return result
}

// String formats the analysis for logging or display
func (a Analysis) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", a.Type, a.Message)
	if a.Code != 0 {
		fmt.Fprintf(&b, " (code %d)", a.Code)
	}
	if a.Anchor != nil {
		fmt.Fprintf(&b, "; anchor %s #%d: %s", a.Anchor.Name, a.Anchor.Code, a.Anchor.Msg)
	}
	return b.String()
}

var (
	anchorCodeRe   = regexp.MustCompile(`Error Code: ([A-Za-z0-9_]+)\.`)
	anchorNumberRe = regexp.MustCompile(`Error Number: (\d+)\.`)
	anchorMsgRe    = regexp.MustCompile(`Error Message: ([^.]*)`)
)

// parseAnchorErrorLog parses an Anchor error log string
// Example: "Program log: AnchorError occurred. Error Code: SlippageOverflow. Error Number: 6003. Error Message: Slippage exceeded."
func parseAnchorErrorLog(logStr string) AnchorError {
	result := AnchorError{}

	if m := anchorNumberRe.FindStringSubmatch(logStr); m != nil {
		result.Code, _ = strconv.Atoi(m[1])
	}
	if m := anchorCodeRe.FindStringSubmatch(logStr); m != nil {
		result.Name = m[1]
	}
	if m := anchorMsgRe.FindStringSubmatch(logStr); m != nil {
		result.Msg = strings.TrimSpace(m[1])
	}

	return result
}
