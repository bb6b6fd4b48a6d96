package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each one is published after the store transaction that
// produced it has committed.
const (
	// Identity events
	EventUserRegistered       EventType = "identity.user_registered"
	EventMemberAdded          EventType = "identity.member_added"
	EventRoleChanged          EventType = "identity.role_changed"
	EventRegistrationRejected EventType = "identity.registration_rejected"
	EventPasswordChanged      EventType = "identity.password_changed"
	EventUserActivation       EventType = "identity.activation_changed"
	EventProfileUpdated       EventType = "identity.profile_updated"

	// Roster events
	EventCourseCreated     EventType = "roster.course_created"
	EventStudentEnrolled   EventType = "roster.student_enrolled"
	EventStudentUnenrolled EventType = "roster.student_unenrolled"
	EventParentLinked      EventType = "roster.parent_linked"
	EventTeacherAssigned   EventType = "roster.teacher_assigned"
	EventTeacherUnassigned EventType = "roster.teacher_unassigned"

	// Attendance events
	EventAttendanceMarked  EventType = "attendance.marked"
	EventAttendanceUpdated EventType = "attendance.updated"

	// Grading events
	EventAssignmentCreated EventType = "grading.assignment_created"
	EventAssignmentClosed  EventType = "grading.assignment_closed"
	EventGradeRecorded     EventType = "grading.grade_recorded"

	// Schedule events
	EventScheduled      EventType = "schedule.event_created"
	EventRescheduled    EventType = "schedule.event_updated"
	EventScheduleCancel EventType = "schedule.event_cancelled"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Actor         string    `json:"actor,omitempty"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID, actor string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Actor:       actor,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Identity Events
// ═══════════════════════════════════════════════════════════════════════════

// UserRegisteredEvent is emitted when someone registers an account.
type UserRegisteredEvent struct {
	BaseEvent
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Payload implements Event interface.
func (e UserRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"username": e.Username,
		"role":     e.Role,
	}
}

// NewUserRegisteredEvent creates a new UserRegisteredEvent.
func NewUserRegisteredEvent(userID, username, role string) UserRegisteredEvent {
	return UserRegisteredEvent{
		BaseEvent: NewBaseEvent(EventUserRegistered, userID, username),
		Username:  username,
		Role:      role,
	}
}

// MemberAddedEvent is emitted when an administrator creates an account directly.
type MemberAddedEvent struct {
	BaseEvent
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Payload implements Event interface.
func (e MemberAddedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"username": e.Username,
		"role":     e.Role,
	}
}

// NewMemberAddedEvent creates a new MemberAddedEvent.
func NewMemberAddedEvent(userID, username, role, actor string) MemberAddedEvent {
	return MemberAddedEvent{
		BaseEvent: NewBaseEvent(EventMemberAdded, userID, actor),
		Username:  username,
		Role:      role,
	}
}

// RoleChangedEvent is emitted when an administrator changes a user's role,
// including approval of a pending registration.
type RoleChangedEvent struct {
	BaseEvent
	Username string `json:"username"`
	OldRole  string `json:"old_role"`
	NewRole  string `json:"new_role"`
}

// Payload implements Event interface.
func (e RoleChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"username": e.Username,
		"old_role": e.OldRole,
		"new_role": e.NewRole,
	}
}

// NewRoleChangedEvent creates a new RoleChangedEvent.
func NewRoleChangedEvent(userID, username, oldRole, newRole, actor string) RoleChangedEvent {
	return RoleChangedEvent{
		BaseEvent: NewBaseEvent(EventRoleChanged, userID, actor),
		Username:  username,
		OldRole:   oldRole,
		NewRole:   newRole,
	}
}

// RegistrationRejectedEvent is emitted when a pending registration is removed.
type RegistrationRejectedEvent struct {
	BaseEvent
	Username string `json:"username"`
}

// Payload implements Event interface.
func (e RegistrationRejectedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"username": e.Username,
	}
}

// NewRegistrationRejectedEvent creates a new RegistrationRejectedEvent.
func NewRegistrationRejectedEvent(userID, username, actor string) RegistrationRejectedEvent {
	return RegistrationRejectedEvent{
		BaseEvent: NewBaseEvent(EventRegistrationRejected, userID, actor),
		Username:  username,
	}
}

// PasswordChangedEvent is emitted after a password reset. It never carries the secret.
type PasswordChangedEvent struct {
	BaseEvent
	Username string `json:"username"`
}

// Payload implements Event interface.
func (e PasswordChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"username": e.Username,
	}
}

// NewPasswordChangedEvent creates a new PasswordChangedEvent.
func NewPasswordChangedEvent(userID, username, actor string) PasswordChangedEvent {
	return PasswordChangedEvent{
		BaseEvent: NewBaseEvent(EventPasswordChanged, userID, actor),
		Username:  username,
	}
}

// ActivationChangedEvent is emitted when an account is activated or deactivated.
type ActivationChangedEvent struct {
	BaseEvent
	Username string `json:"username"`
	Active   bool   `json:"active"`
}

// Payload implements Event interface.
func (e ActivationChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"username": e.Username,
		"active":   e.Active,
	}
}

// NewActivationChangedEvent creates a new ActivationChangedEvent.
func NewActivationChangedEvent(userID, username string, active bool, actor string) ActivationChangedEvent {
	return ActivationChangedEvent{
		BaseEvent: NewBaseEvent(EventUserActivation, userID, actor),
		Username:  username,
		Active:    active,
	}
}

// ProfileUpdatedEvent is emitted when account or profile fields are edited.
type ProfileUpdatedEvent struct {
	BaseEvent
	Username string   `json:"username"`
	Fields   []string `json:"fields"`
}

// Payload implements Event interface.
func (e ProfileUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"username": e.Username,
		"fields":   e.Fields,
	}
}

// NewProfileUpdatedEvent creates a new ProfileUpdatedEvent.
func NewProfileUpdatedEvent(userID, username string, fields []string, actor string) ProfileUpdatedEvent {
	return ProfileUpdatedEvent{
		BaseEvent: NewBaseEvent(EventProfileUpdated, userID, actor),
		Username:  username,
		Fields:    fields,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Roster Events
// ═══════════════════════════════════════════════════════════════════════════

// CourseCreatedEvent is emitted when a course is added.
type CourseCreatedEvent struct {
	BaseEvent
	Name string `json:"name"`
	Code string `json:"code"`
}

// Payload implements Event interface.
func (e CourseCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"name": e.Name,
		"code": e.Code,
	}
}

// NewCourseCreatedEvent creates a new CourseCreatedEvent.
func NewCourseCreatedEvent(courseID, name, code, actor string) CourseCreatedEvent {
	return CourseCreatedEvent{
		BaseEvent: NewBaseEvent(EventCourseCreated, courseID, actor),
		Name:      name,
		Code:      code,
	}
}

// EnrollmentEvent is emitted for both enrollment and unenrollment.
type EnrollmentEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
}

// Payload implements Event interface.
func (e EnrollmentEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"course_id":  e.CourseID,
	}
}

// NewStudentEnrolledEvent creates an enrollment event.
func NewStudentEnrolledEvent(studentID, courseID, actor string) EnrollmentEvent {
	return EnrollmentEvent{
		BaseEvent: NewBaseEvent(EventStudentEnrolled, studentID, actor),
		StudentID: studentID,
		CourseID:  courseID,
	}
}

// NewStudentUnenrolledEvent creates an unenrollment event.
func NewStudentUnenrolledEvent(studentID, courseID, actor string) EnrollmentEvent {
	return EnrollmentEvent{
		BaseEvent: NewBaseEvent(EventStudentUnenrolled, studentID, actor),
		StudentID: studentID,
		CourseID:  courseID,
	}
}

// ParentLinkedEvent is emitted after a parent's children set is replaced.
type ParentLinkedEvent struct {
	BaseEvent
	ParentID string   `json:"parent_id"`
	Children []string `json:"children"`
	Released []string `json:"released"`
}

// Payload implements Event interface.
func (e ParentLinkedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"parent_id": e.ParentID,
		"children":  e.Children,
		"released":  e.Released,
	}
}

// NewParentLinkedEvent creates a new ParentLinkedEvent.
func NewParentLinkedEvent(parentID string, children, released []string, actor string) ParentLinkedEvent {
	return ParentLinkedEvent{
		BaseEvent: NewBaseEvent(EventParentLinked, parentID, actor),
		ParentID:  parentID,
		Children:  children,
		Released:  released,
	}
}

// TeacherAssignmentEvent is emitted when a course gains or loses its teacher.
type TeacherAssignmentEvent struct {
	BaseEvent
	TeacherID string `json:"teacher_id"`
	CourseID  string `json:"course_id"`
}

// Payload implements Event interface.
func (e TeacherAssignmentEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"teacher_id": e.TeacherID,
		"course_id":  e.CourseID,
	}
}

// NewTeacherAssignedEvent creates a TeacherAssignmentEvent for an assignment.
func NewTeacherAssignedEvent(teacherID, courseID, actor string) TeacherAssignmentEvent {
	return TeacherAssignmentEvent{
		BaseEvent: NewBaseEvent(EventTeacherAssigned, courseID, actor),
		TeacherID: teacherID,
		CourseID:  courseID,
	}
}

// NewTeacherUnassignedEvent creates a TeacherAssignmentEvent for a removal.
func NewTeacherUnassignedEvent(teacherID, courseID, actor string) TeacherAssignmentEvent {
	return TeacherAssignmentEvent{
		BaseEvent: NewBaseEvent(EventTeacherUnassigned, courseID, actor),
		TeacherID: teacherID,
		CourseID:  courseID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Attendance Events
// ═══════════════════════════════════════════════════════════════════════════

// AttendanceEvent is emitted when a session is marked or updated.
type AttendanceEvent struct {
	BaseEvent
	CourseID string         `json:"course_id"`
	Date     string         `json:"date"`
	Counts   map[string]int `json:"counts"`
}

// Payload implements Event interface.
func (e AttendanceEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"course_id": e.CourseID,
		"date":      e.Date,
		"counts":    e.Counts,
	}
}

// NewAttendanceMarkedEvent creates an AttendanceEvent for a new session.
func NewAttendanceMarkedEvent(sessionKey, courseID, date string, counts map[string]int, teacherID string) AttendanceEvent {
	return AttendanceEvent{
		BaseEvent: NewBaseEvent(EventAttendanceMarked, sessionKey, teacherID),
		CourseID:  courseID,
		Date:      date,
		Counts:    counts,
	}
}

// NewAttendanceUpdatedEvent creates an AttendanceEvent for a replaced session.
func NewAttendanceUpdatedEvent(sessionKey, courseID, date string, counts map[string]int, teacherID string) AttendanceEvent {
	return AttendanceEvent{
		BaseEvent: NewBaseEvent(EventAttendanceUpdated, sessionKey, teacherID),
		CourseID:  courseID,
		Date:      date,
		Counts:    counts,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Grading Events
// ═══════════════════════════════════════════════════════════════════════════

// AssignmentEvent is emitted when an assignment is created or closed.
type AssignmentEvent struct {
	BaseEvent
	CourseID  string  `json:"course_id"`
	Name      string  `json:"name"`
	MaxPoints float64 `json:"max_points"`
}

// Payload implements Event interface.
func (e AssignmentEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"course_id":  e.CourseID,
		"name":       e.Name,
		"max_points": e.MaxPoints,
	}
}

// NewAssignmentCreatedEvent creates an AssignmentEvent for a new assignment.
func NewAssignmentCreatedEvent(assignmentID, courseID, name string, maxPoints float64, teacherID string) AssignmentEvent {
	return AssignmentEvent{
		BaseEvent: NewBaseEvent(EventAssignmentCreated, assignmentID, teacherID),
		CourseID:  courseID,
		Name:      name,
		MaxPoints: maxPoints,
	}
}

// NewAssignmentClosedEvent creates an AssignmentEvent for a closed assignment.
func NewAssignmentClosedEvent(assignmentID, courseID, name string, maxPoints float64, teacherID string) AssignmentEvent {
	return AssignmentEvent{
		BaseEvent: NewBaseEvent(EventAssignmentClosed, assignmentID, teacherID),
		CourseID:  courseID,
		Name:      name,
		MaxPoints: maxPoints,
	}
}

// GradeRecordedEvent is emitted when a grade is stored.
type GradeRecordedEvent struct {
	BaseEvent
	StudentID    string  `json:"student_id"`
	CourseID     string  `json:"course_id"`
	AssignmentID string  `json:"assignment_id"`
	Percentage   float64 `json:"percentage"`
	Letter       string  `json:"letter"`
}

// Payload implements Event interface.
func (e GradeRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":    e.StudentID,
		"course_id":     e.CourseID,
		"assignment_id": e.AssignmentID,
		"percentage":    e.Percentage,
		"letter":        e.Letter,
	}
}

// NewGradeRecordedEvent creates a new GradeRecordedEvent.
func NewGradeRecordedEvent(gradeID, studentID, courseID, assignmentID string, percentage float64, letter, teacherID string) GradeRecordedEvent {
	return GradeRecordedEvent{
		BaseEvent:    NewBaseEvent(EventGradeRecorded, gradeID, teacherID),
		StudentID:    studentID,
		CourseID:     courseID,
		AssignmentID: assignmentID,
		Percentage:   percentage,
		Letter:       letter,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Schedule Events
// ═══════════════════════════════════════════════════════════════════════════

// ScheduleEvent is emitted when a school calendar entry is created, edited
// or cancelled.
type ScheduleEvent struct {
	BaseEvent
	Title     string `json:"title"`
	StartDate string `json:"start_date"`
}

// Payload implements Event interface.
func (e ScheduleEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"title":      e.Title,
		"start_date": e.StartDate,
	}
}

func newScheduleEvent(t EventType, eventID, title, startDate, actor string) ScheduleEvent {
	return ScheduleEvent{
		BaseEvent: NewBaseEvent(t, eventID, actor),
		Title:     title,
		StartDate: startDate,
	}
}

// NewEventScheduledEvent creates a ScheduleEvent for a new calendar entry.
func NewEventScheduledEvent(eventID, title, startDate, actor string) ScheduleEvent {
	return newScheduleEvent(EventScheduled, eventID, title, startDate, actor)
}

// NewEventRescheduledEvent creates a ScheduleEvent for an edited entry.
func NewEventRescheduledEvent(eventID, title, startDate, actor string) ScheduleEvent {
	return newScheduleEvent(EventRescheduled, eventID, title, startDate, actor)
}

// NewEventCancelledEvent creates a ScheduleEvent for a cancelled entry.
func NewEventCancelledEvent(eventID, title, startDate, actor string) ScheduleEvent {
	return newScheduleEvent(EventScheduleCancel, eventID, title, startDate, actor)
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and audit)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for storage in the audit trail.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Actor         string          `json:"actor,omitempty"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEventEnvelope serializes an event's payload into an envelope.
func NewEventEnvelope(id string, event Event) (EventEnvelope, error) {
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return EventEnvelope{}, err
	}
	env := EventEnvelope{
		ID:          id,
		Type:        event.EventType(),
		AggregateID: event.AggregateID(),
		Timestamp:   event.OccurredAt(),
		Version:     1,
		Payload:     payload,
	}
	if b, ok := baseOf(event); ok {
		env.Actor = b.Actor
		env.Version = b.Version
		env.CorrelationID = b.CorrelationID
	}
	return env, nil
}

func baseOf(event Event) (BaseEvent, bool) {
	type based interface{ base() BaseEvent }
	if b, ok := event.(based); ok {
		return b.base(), true
	}
	return BaseEvent{}, false
}

func (e BaseEvent) base() BaseEvent { return e }

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
