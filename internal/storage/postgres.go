package storage

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/models"
	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/storage"
)

type DBInterface interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	QueryRowx(query string, args ...interface{}) *sqlx.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

type PostgresStore struct {
	db DBInterface
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Begin() (storage.Store, error) {
	if db, ok := s.db.(*sqlx.DB); ok {
		tx, err := db.Beginx()
		if err != nil {
			return nil, err
		}
		return &PostgresStore{db: tx}, nil
	}
	return nil, fmt.Errorf("cannot begin transaction on unknown type")
}

func (s *PostgresStore) Commit() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Commit()
	}
	return fmt.Errorf("cannot commit: not a transaction")
}

func (s *PostgresStore) Rollback() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Rollback()
	}
	return fmt.Errorf("cannot rollback: not a transaction")
}

func (s *PostgresStore) Close() error {
	if db, ok := s.db.(*sqlx.DB); ok {
		return db.Close()
	}
	return nil // No-op for *sqlx.Tx
}

// Template catalog

func (s *PostgresStore) GetRequirement(id int64) (models.RequirementTemplate, error) {
	var t models.RequirementTemplate
	err := s.db.Get(&t, "SELECT * FROM requirement_templates WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return models.RequirementTemplate{}, storage.ErrNotFound
	}
	if err != nil {
		return models.RequirementTemplate{}, fmt.Errorf("get requirement %d: %w", id, err)
	}
	return t, nil
}

func (s *PostgresStore) ListTemplates() ([]models.RequirementTemplate, error) {
	templates := []models.RequirementTemplate{}
	err := s.db.Select(&templates, "SELECT * FROM requirement_templates ORDER BY id")
	if err != nil {
		return nil, err
	}
	return templates, nil
}

func (s *PostgresStore) GetDepartmentRequirements(departmentID int64) ([]models.RequirementTemplate, error) {
	templates := []models.RequirementTemplate{}
	err := s.db.Select(&templates, "SELECT * FROM requirement_templates WHERE department_id = $1 ORDER BY id", departmentID)
	if err != nil {
		return nil, err
	}
	return templates, nil
}

func (s *PostgresStore) GetTemplatePrerequisites(templateID int64) ([]models.Prerequisite, error) {
	prereqs := []models.Prerequisite{}
	// Serial order is declaration order
	err := s.db.Select(&prereqs, "SELECT * FROM template_prerequisites WHERE template_id = $1 ORDER BY id", templateID)
	if err != nil {
		return nil, err
	}
	return prereqs, nil
}

func (s *PostgresStore) ListPrerequisites() ([]models.Prerequisite, error) {
	prereqs := []models.Prerequisite{}
	err := s.db.Select(&prereqs, "SELECT * FROM template_prerequisites ORDER BY id")
	if err != nil {
		return nil, err
	}
	return prereqs, nil
}

func (s *PostgresStore) SavePrerequisite(p models.Prerequisite) (int64, error) {
	var id int64
	err := s.db.QueryRowx("INSERT INTO template_prerequisites (template_id, prerequisite_template_id) VALUES ($1, $2) RETURNING id",
		p.TemplateID, p.PrerequisiteTemplateID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save prerequisite: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) ListDepartments() ([]models.Department, error) {
	departments := []models.Department{}
	err := s.db.Select(&departments, "SELECT * FROM departments ORDER BY id")
	if err != nil {
		return nil, err
	}
	return departments, nil
}

// Events

func (s *PostgresStore) GetEvent(id int64) (models.Event, error) {
	var e models.Event
	err := s.db.Get(&e, "SELECT * FROM events WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return models.Event{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Event{}, err
	}
	return e, nil
}

func (s *PostgresStore) GetEventDepartment(id int64) (models.EventDepartment, error) {
	var ed models.EventDepartment
	err := s.db.Get(&ed, "SELECT * FROM event_departments WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return models.EventDepartment{}, storage.ErrNotFound
	}
	if err != nil {
		return models.EventDepartment{}, err
	}
	return ed, nil
}

func (s *PostgresStore) GetEventDepartmentByEventAndDepartment(eventID, departmentID int64) (models.EventDepartment, error) {
	var ed models.EventDepartment
	err := s.db.Get(&ed, "SELECT * FROM event_departments WHERE event_id = $1 AND department_id = $2", eventID, departmentID)
	if err == sql.ErrNoRows {
		return models.EventDepartment{}, storage.ErrNotFound
	}
	if err != nil {
		return models.EventDepartment{}, err
	}
	return ed, nil
}

func (s *PostgresStore) GetEventDepartments(eventID int64) ([]models.EventDepartment, error) {
	eds := []models.EventDepartment{}
	err := s.db.Select(&eds, "SELECT * FROM event_departments WHERE event_id = $1 ORDER BY id", eventID)
	if err != nil {
		return nil, err
	}
	return eds, nil
}

// Tasks

func (s *PostgresStore) GetTask(id int64) (models.Task, error) {
	var t models.Task
	err := s.db.Get(&t, "SELECT * FROM tasks WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return models.Task{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Task{}, err
	}
	return t, nil
}

func (s *PostgresStore) GetTasksByEventDepartment(eventDepartmentID int64) ([]models.Task, error) {
	tasks := []models.Task{}
	err := s.db.Select(&tasks, "SELECT * FROM tasks WHERE event_department_id = $1 ORDER BY id", eventDepartmentID)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *PostgresStore) SaveTask(t models.Task) (int64, error) {
	var id int64
	err := s.db.QueryRowx(`
		INSERT INTO tasks (event_department_id, template_id, title, title_translation, status, priority, due_date, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		t.EventDepartmentID, t.TemplateID, t.Title, t.TitleTranslation, t.Status, t.Priority, t.DueDate, t.CreatedByUserID, t.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save task: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) UpdateTaskStatus(id int64, status models.TaskStatus) error {
	res, err := s.db.Exec("UPDATE tasks SET status = $1 WHERE id = $2", status, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteTask(id int64) error {
	res, err := s.db.Exec("DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Workflows

func (s *PostgresStore) SaveWorkflow(w models.EventWorkflow) (int64, error) {
	var id int64
	err := s.db.QueryRowx("INSERT INTO event_workflows (event_id, created_by, created_at) VALUES ($1, $2, $3) RETURNING id",
		w.EventID, w.CreatedByUserID, w.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save workflow: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetEventWorkflows(eventID int64) ([]models.EventWorkflow, error) {
	workflows := []models.EventWorkflow{}
	err := s.db.Select(&workflows, "SELECT * FROM event_workflows WHERE event_id = $1 ORDER BY id", eventID)
	if err != nil {
		return nil, err
	}
	return workflows, nil
}

func (s *PostgresStore) GetWorkflowTasks(workflowID int64) ([]models.WorkflowTask, error) {
	wts := []models.WorkflowTask{}
	err := s.db.Select(&wts, "SELECT * FROM workflow_tasks WHERE workflow_id = $1 ORDER BY order_index", workflowID)
	if err != nil {
		return nil, err
	}
	return wts, nil
}

func (s *PostgresStore) AddTaskToWorkflow(wt models.WorkflowTask) error {
	_, err := s.db.Exec(`
		INSERT INTO workflow_tasks (workflow_id, task_id, prerequisite_task_id, order_index) VALUES ($1, $2, $3, $4)
		`,
		wt.WorkflowID, wt.TaskID, wt.PrerequisiteTaskID, wt.OrderIndex)
	return err
}

func (s *PostgresStore) GetTaskWorkflow(taskID int64) (models.EventWorkflow, error) {
	var w models.EventWorkflow
	err := s.db.Get(&w, `
		SELECT w.* FROM event_workflows w
		JOIN workflow_tasks wt ON wt.workflow_id = w.id
		WHERE wt.task_id = $1
		ORDER BY w.id LIMIT 1`, taskID)
	if err == sql.ErrNoRows {
		return models.EventWorkflow{}, storage.ErrNotFound
	}
	if err != nil {
		return models.EventWorkflow{}, err
	}
	return w, nil
}

func (s *PostgresStore) GetWorkflowWithTasks(workflowID int64) (models.EventWorkflow, []models.WorkflowTask, error) {
	var w models.EventWorkflow
	err := s.db.Get(&w, "SELECT * FROM event_workflows WHERE id = $1", workflowID)
	if err == sql.ErrNoRows {
		return models.EventWorkflow{}, nil, storage.ErrNotFound
	}
	if err != nil {
		return models.EventWorkflow{}, nil, err
	}
	wts, err := s.GetWorkflowTasks(workflowID)
	if err != nil {
		return models.EventWorkflow{}, nil, err
	}
	return w, wts, nil
}

// Dependency state

// dependentTasksQuery selects the tasks that depend on task $1, derived from
// template-level prerequisite edges resolved within the same event.
const dependentTasksQuery = `
	SELECT t2.* FROM tasks t1
	JOIN event_departments ed1 ON ed1.id = t1.event_department_id
	JOIN template_prerequisites tp ON tp.prerequisite_template_id = t1.template_id
	JOIN requirement_templates rt ON rt.id = tp.template_id
	JOIN event_departments ed2 ON ed2.event_id = ed1.event_id AND ed2.department_id = rt.department_id
	JOIN tasks t2 ON t2.event_department_id = ed2.id AND t2.template_id = tp.template_id
	WHERE t1.id = $1`

func (s *PostgresStore) GetDependentTasks(taskID int64) ([]models.Task, error) {
	tasks := []models.Task{}
	err := s.db.Select(&tasks, dependentTasksQuery+" ORDER BY t2.id", taskID)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *PostgresStore) IsTaskPrerequisiteForOthers(taskID int64) (bool, error) {
	var count int
	err := s.db.Get(&count, "SELECT COUNT(*) FROM ("+dependentTasksQuery+") deps", taskID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ActivateWaitingTasks promotes the waiting dependents of a completed task
// whose prerequisites are now all satisfied. Every prerequisite of a
// dependent is re-checked, not just the one that completed.
func (s *PostgresStore) ActivateWaitingTasks(completedTaskID int64) ([]models.Task, error) {
	waiting := []models.Task{}
	err := s.db.Select(&waiting, dependentTasksQuery+" AND t2.status = 'waiting' ORDER BY t2.id", completedTaskID)
	if err != nil {
		return nil, err
	}

	promoted := []models.Task{}
	for _, dep := range waiting {
		if dep.TemplateID == nil {
			continue
		}
		var eventID int64
		if err := s.db.Get(&eventID, "SELECT event_id FROM event_departments WHERE id = $1", dep.EventDepartmentID); err != nil {
			return promoted, err
		}
		var unsatisfied int
		err := s.db.Get(&unsatisfied, `
			SELECT COUNT(*) FROM template_prerequisites tp
			JOIN requirement_templates prt ON prt.id = tp.prerequisite_template_id
			WHERE tp.template_id = $1
			AND NOT EXISTS (
				SELECT 1 FROM tasks t
				JOIN event_departments ed ON ed.id = t.event_department_id
				WHERE ed.event_id = $2
				AND ed.department_id = prt.department_id
				AND t.template_id = tp.prerequisite_template_id
				AND t.status = 'completed'
			)`, *dep.TemplateID, eventID)
		if err != nil {
			return promoted, err
		}
		if unsatisfied > 0 {
			continue
		}
		res, err := s.db.Exec("UPDATE tasks SET status = 'pending' WHERE id = $1 AND status = 'waiting'", dep.ID)
		if err != nil {
			return promoted, err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			continue
		}
		dep.Status = models.PendingTaskStatus
		promoted = append(promoted, dep)
	}
	return promoted, nil
}
