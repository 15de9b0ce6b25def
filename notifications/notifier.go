package notifications

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"termbilling/events"
)

// Notice is a message prepared for a student's parent after a billing run
type Notice struct {
	StudentID int64
	TermID    int64
	Recipient string
	Message   string
}

// Sender delivers prepared notices
type Sender interface {
	Send(ctx context.Context, notice Notice) error
}

// LogSender writes notices to the application log instead of delivering them
type LogSender struct{}

func (LogSender) Send(ctx context.Context, notice Notice) error {
	log.WithFields(log.Fields{
		"studentID": notice.StudentID,
		"termID":    notice.TermID,
		"recipient": notice.Recipient,
	}).Infof("Parent notice prepared: %s", notice.Message)
	return nil
}

// Notifier turns billing events into parent notices
type Notifier struct {
	sender Sender
}

// NewNotifier creates a notifier that hands notices to sender
func NewNotifier(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

// RegisterSubscriptions subscribes the notifier to billing events on bus
func RegisterSubscriptions(bus *events.Bus, notifier *Notifier) {
	bus.Subscribe(events.EventTypeStudentBilled, func(ctx context.Context, event events.Event) {
		if err := notifier.HandleStudentBilled(ctx, event); err != nil {
			log.WithError(err).Error("Failed to prepare parent notice")
		}
	})
	bus.Subscribe(events.EventTypeTermBilled, func(ctx context.Context, event events.Event) {
		if termEvent, ok := event.(events.TermBilledEvent); ok {
			log.WithFields(log.Fields{
				"termID":          termEvent.TermID,
				"billingDate":     termEvent.BillingDate.Format("2006-01-02"),
				"studentsBilled":  termEvent.StudentsBilled,
				"studentsSkipped": termEvent.StudentsSkipped,
				"ledgerEntries":   termEvent.LedgerEntries,
			}).Info("Term billing completed")
		}
	})

	log.Info("Notification subscriptions registered")
}

// HandleStudentBilled prepares and sends a notice for a billed student.
// Students without contact info are skipped.
func (n *Notifier) HandleStudentBilled(ctx context.Context, event events.Event) error {
	billed, ok := event.(events.StudentBilledEvent)
	if !ok {
		return fmt.Errorf("received %T in student billed handler", event)
	}

	if billed.ContactInfo == "" {
		log.WithField("studentID", billed.StudentID).Debug("No contact info, skipping parent notice")
		return nil
	}

	notice := BuildNotice(billed)
	if err := n.sender.Send(ctx, notice); err != nil {
		return fmt.Errorf("failed to send notice for student %d: %w", billed.StudentID, err)
	}
	return nil
}

// BuildNotice renders the parent notice for a billed student
func BuildNotice(billed events.StudentBilledEvent) Notice {
	totalDue := billed.NewTuitionOwing.Add(billed.NewLevyOwing)
	return Notice{
		StudentID: billed.StudentID,
		TermID:    billed.TermID,
		Recipient: billed.ContactInfo,
		Message: fmt.Sprintf(
			"Dear Parent, your child %s %s has been billed for the new term. Total due: USD %s.",
			billed.FirstNames, billed.Surname, totalDue.StringFixed(2),
		),
	}
}
