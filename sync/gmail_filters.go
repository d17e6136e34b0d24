// ABOUTME: Filters that decide whether a Gmail message looks like a customer inquiry
// ABOUTME: Drops automated senders, calendar traffic, bounces and mail sent by the user
package sync

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"
)

const (
	skipReasonOwn         = "sent by user"
	skipReasonAutomated   = "automated sender"
	skipReasonGroup       = "group email"
	skipReasonCalendar    = "calendar invite"
	skipReasonAutoSubject = "auto-generated subject"

	maxInquiryRecipients = 3
)

var automatedSenderMarkers = []string{
	"noreply", "no-reply", "donotreply", "do-not-reply",
	"notifications", "notify", "mailer-daemon", "postmaster",
	"bounces", "unsubscribe", "newsletter", "marketing",
}

var calendarSubjectPrefixes = []string{
	"invitation:", "invite:", "calendar:", "updated invitation:", "canceled event:",
}

var autoSubjectPrefixes = []string{
	"automatic reply", "out of office", "delivery status notification",
	"returned mail", "failure notice", "undelivered mail",
}

// BuildInquiryQuery returns the Gmail search used to find inbound inquiries.
// base narrows the search further (e.g. "label:leads").
func BuildInquiryQuery(base string, since time.Time) string {
	q := fmt.Sprintf("in:inbox -from:me after:%s -in:spam -in:trash", since.Format("2006/01/02"))
	if base = strings.TrimSpace(base); base != "" {
		q = base + " " + q
	}
	return q
}

// IsInquiryEmail reports whether msg should become an inquiry, and the skip
// reason when it should not.
func IsInquiryEmail(msg *gmail.Message, userEmail string) (bool, string) {
	if msg == nil {
		return false, "nil message"
	}
	headers := parseHeaders(msg.Payload)
	from := headers["From"]

	if _, addr, _ := ExtractEmailAddress(from); addr != "" && strings.EqualFold(addr, userEmail) {
		return false, skipReasonOwn
	}
	if isAutomatedSender(from) {
		return false, skipReasonAutomated
	}
	if n := countRecipients(headers["To"]) + countRecipients(headers["Cc"]); n > maxInquiryRecipients {
		return false, fmt.Sprintf("%s (%d recipients)", skipReasonGroup, n)
	}
	subject := headers["Subject"]
	if isCalendarInvite(subject, msg) {
		return false, skipReasonCalendar
	}
	if isAutoGeneratedSubject(subject) {
		return false, skipReasonAutoSubject
	}
	return true, ""
}

func parseHeaders(part *gmail.MessagePart) map[string]string {
	headers := make(map[string]string)
	if part == nil {
		return headers
	}
	for _, h := range part.Headers {
		headers[h.Name] = h.Value
	}
	return headers
}

func isAutomatedSender(from string) bool {
	if strings.TrimSpace(from) == "" {
		return true
	}
	lower := strings.ToLower(from)
	for _, marker := range automatedSenderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func countRecipients(header string) int {
	n := 0
	for _, part := range strings.Split(header, ",") {
		if strings.TrimSpace(part) != "" {
			n++
		}
	}
	return n
}

func isCalendarInvite(subject string, msg *gmail.Message) bool {
	if msg == nil || msg.Payload == nil {
		return false
	}
	if strings.HasPrefix(msg.Payload.MimeType, "text/calendar") {
		return true
	}
	for _, part := range msg.Payload.Parts {
		if part != nil && strings.HasPrefix(part.MimeType, "text/calendar") {
			return true
		}
	}
	lower := strings.ToLower(subject)
	for _, prefix := range calendarSubjectPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func isAutoGeneratedSubject(subject string) bool {
	trimmed := strings.TrimSpace(subject)
	if len([]rune(trimmed)) < 3 {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, prefix := range autoSubjectPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// ExtractEmailAddress splits a From style header into display name, address
// and lower-cased domain. Unparseable input comes back trimmed as the address.
func ExtractEmailAddress(field string) (name, email, domain string) {
	field = strings.TrimSpace(field)
	if field == "" {
		return "", "", ""
	}
	if addr, err := mail.ParseAddress(field); err == nil {
		return strings.TrimSpace(addr.Name), addr.Address, domainOf(addr.Address)
	}
	return "", field, domainOf(field)
}

func domainOf(email string) string {
	if strings.Count(email, "@") != 1 {
		return ""
	}
	domain := email[strings.Index(email, "@")+1:]
	return strings.ToLower(strings.TrimRight(domain, "> "))
}
