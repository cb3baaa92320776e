package notify

import (
	"bytes"
	"html/template"

	"vyomsetu/internal/domain"
)

var assignmentTmpl = template.Must(template.New("assignment").Parse(`
<div style="font-family:sans-serif;max-width:600px">
  <h2>New Task Assigned</h2>
  <p>Hi {{.AssigneeName}},</p>
  <p>You have been assigned a new task in the <strong>{{.Domain}}</strong> domain.</p>
  <table cellpadding="6">
    <tr><td><strong>Title</strong></td><td>{{.Title}}</td></tr>
    {{if .Description}}<tr><td><strong>Description</strong></td><td>{{.Description}}</td></tr>{{end}}
    <tr><td><strong>Priority</strong></td><td>{{.Priority}}</td></tr>
    <tr><td><strong>Due date</strong></td><td>{{.DueDate}}</td></tr>
  </table>
  <p>Assigned by {{.CreatedByName}}.</p>
</div>`))

var reminderTmpl = template.Must(template.New("reminder").Parse(`
<div style="font-family:sans-serif;max-width:600px">
  <h2>Task Overdue</h2>
  <p>Hi {{.AssigneeName}},</p>
  <p>The following task is past its due date and is still
  <strong>{{.Status}}</strong>:</p>
  <table cellpadding="6">
    <tr><td><strong>Title</strong></td><td>{{.Title}}</td></tr>
    <tr><td><strong>Domain</strong></td><td>{{.Domain}}</td></tr>
    <tr><td><strong>Due date</strong></td><td>{{.DueDate}}</td></tr>
  </table>
  <p>Please update its status or submit your work.</p>
</div>`))

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}

// AssignmentMessage builds the email sent when a task is assigned.
func AssignmentMessage(task domain.Task, to string) Message {
	return Message{
		To:      to,
		ToName:  task.AssigneeName,
		Subject: "New task assigned: " + task.Title,
		HTML:    render(assignmentTmpl, task),
	}
}

// ReminderMessage builds the overdue-task reminder email.
func ReminderMessage(task domain.Task, to string) Message {
	return Message{
		To:      to,
		ToName:  task.AssigneeName,
		Subject: "Task overdue: " + task.Title,
		HTML:    render(reminderTmpl, task),
	}
}
