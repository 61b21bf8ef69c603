// Package calendar renders meetings as iCalendar documents: a single-event
// invitation attached to booking confirmations and a feed of every slot for
// administrators.
package calendar

import (
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

const (
	// ContentType is the media type of Feed output.
	ContentType = "text/calendar; charset=utf-8"
	// InviteContentType is the media type of Invite output.
	InviteContentType = "text/calendar; charset=utf-8; method=REQUEST"

	productID = "homevisit"
	uidDomain = "@homevisit"
)

// Event is one meeting to render.
type Event struct {
	ID          string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	// Attendee is an email address; empty for free slots.
	Attendee string
	Reserved bool
}

// Invite renders a METHOD:REQUEST calendar containing ev, organised by
// organizer and stamped at stamp.
func Invite(ev Event, organizer string, stamp time.Time) []byte {
	cal := ics.NewCalendarFor(productID)
	cal.SetMethod(ics.MethodRequest)

	event := addEvent(cal, ev, stamp)
	if organizer != "" {
		event.SetOrganizer("mailto:" + organizer)
	}
	if ev.Attendee != "" {
		event.AddAttendee("mailto:"+ev.Attendee,
			ics.CalendarUserTypeIndividual,
			ics.ParticipationStatusAccepted,
			ics.ParticipationRoleReqParticipant,
		)
	}
	return []byte(cal.Serialize())
}

// Feed renders a METHOD:PUBLISH calendar named name holding events.
// Reserved slots are CONFIRMED, free slots TENTATIVE.
func Feed(name string, events []Event, stamp time.Time) []byte {
	cal := ics.NewCalendarFor(productID)
	cal.SetMethod(ics.MethodPublish)
	if name != "" {
		cal.SetName(name)
		cal.SetXWRCalName(name)
	}
	for _, ev := range events {
		event := addEvent(cal, ev, stamp)
		if !ev.Reserved {
			event.SetStatus(ics.ObjectStatusTentative)
		}
	}
	return []byte(cal.Serialize())
}

func addEvent(cal *ics.Calendar, ev Event, stamp time.Time) *ics.VEvent {
	event := cal.AddEvent(UID(ev.ID))
	event.SetDtStampTime(stamp.UTC())
	event.SetStartAt(ev.Start.UTC())
	event.SetEndAt(ev.End.UTC())
	event.SetSummary(ev.Summary)
	event.SetStatus(ics.ObjectStatusConfirmed)
	if ev.Description != "" {
		event.SetDescription(ev.Description)
	}
	if loc := strings.TrimSpace(ev.Location); loc != "" {
		event.SetLocation(loc)
	}
	return event
}

// UID returns the iCalendar UID used for a meeting id.
func UID(meetingID string) string {
	return meetingID + uidDomain
}
