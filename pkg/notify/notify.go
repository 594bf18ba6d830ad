package notify

import (
	"fmt"
	"os/exec"

	"csfloat-watch/pkg/logger"
)

// NotificationType represents the type of notification
type NotificationType int

const (
	Error NotificationType = iota
	Info
	Alert
)

// NotifyService delivers best-effort desktop notifications. Delivery is never
// guaranteed: when every mechanism is unavailable the failure is reported to
// the caller, and callers that cannot act on it (background loops) are
// expected to log it and move on.
type NotifyService struct {
	log           *logger.Logger
	notifyCommand string
}

// NewNotifyService creates a new notification service. notifyCommand is an
// optional user-configured program invoked as `cmd TYPE TITLE MESSAGE`.
func NewNotifyService(notifyCommand string, log *logger.Logger) *NotifyService {
	return &NotifyService{
		log:           log,
		notifyCommand: notifyCommand,
	}
}

// Show displays a notification of the specified type
func (n *NotifyService) Show(title string, message string, nType NotificationType) error {
	// First try configured notification command if available
	if n.notifyCommand != "" {
		if err := n.executeNotifyCommand(title, message, nType); err == nil {
			return nil
		}
		n.log.Warn("Custom notification command failed", "command", n.notifyCommand)
	}

	// Try system notification tools
	if err := n.trySystemNotification(title, message, nType); err == nil {
		return nil
	}

	// If running in terminal, print directly
	if isRunningInTerminal() {
		return n.printToTerminal(title, message, nType)
	}

	// Last resort: log file
	return n.writeToLogFile(title, message, nType)
}

func (n *NotifyService) executeNotifyCommand(title string, message string, nType NotificationType) error {
	typeStr := "ERROR"
	switch nType {
	case Info:
		typeStr = "INFO"
	case Alert:
		typeStr = "ALERT"
	}

	n.log.Debug("Executing notify command",
		"command", n.notifyCommand,
		"type", typeStr)

	cmd := exec.Command("sh", "-c", fmt.Sprintf("%s '%s' '%s' '%s'", n.notifyCommand, typeStr, title, message))
	return cmd.Run()
}
