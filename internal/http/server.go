package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Amine-Ecssr/event-management-system-sub010/internal/log"
	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/models"
	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/service"
	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/storage"
)

// StartServer exposes the workflow engine's upward operations. Authorization
// is not enforced here beyond the role the request carries; that is the
// surrounding portal's job.
func StartServer(port string, store storage.Store) error {
	log.GetLogger().Infof("Starting taskflow server on :%s", port)
	return http.ListenAndServe(":"+port, NewHandler(store))
}

// NewHandler builds the engine's HTTP surface around the given store.
func NewHandler(store storage.Store) http.Handler {
	svc := service.NewTaskflowService(store, log.GetLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /templates/required", requiredTemplatesHandler(svc))
	mux.HandleFunc("POST /templates/{id}/prerequisites", addPrerequisiteHandler(svc))
	mux.HandleFunc("POST /events/{id}/tasks", createTasksHandler(svc))
	mux.HandleFunc("POST /events/{id}/reconcile", reconcileHandler(svc))
	mux.HandleFunc("POST /tasks/{id}/complete", completeTaskHandler(svc, store))
	mux.HandleFunc("GET /tasks/{id}/can-delete", canDeleteHandler(svc))
	mux.HandleFunc("DELETE /tasks/{id}", deleteTaskHandler(svc))
	mux.HandleFunc("GET /workflows/{id}", workflowDetailsHandler(svc))
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "taskflow server is running")
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.GetLogger().Errorf("Failed to encode response: %v", err)
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id '%s'", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func requiredTemplatesHandler(svc *service.TaskflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := parseIDList(r.URL.Query().Get("ids"))
		if err != nil || len(ids) == 0 {
			http.Error(w, "Missing or invalid 'ids' parameter", http.StatusBadRequest)
			return
		}
		required, err := svc.GetRequiredTaskTemplates(ids)
		if err != nil {
			log.GetLogger().Errorf("Failed to resolve required templates: %v", err)
			http.Error(w, fmt.Sprintf("Failed to resolve required templates: %v", err), http.StatusInternalServerError)
			return
		}
		writeJSON(w, required)
	}
}

func addPrerequisiteHandler(svc *service.TaskflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateID, err := pathID(r)
		if err != nil {
			http.Error(w, "Invalid template id", http.StatusBadRequest)
			return
		}
		prereqID, err := strconv.ParseInt(r.FormValue("prerequisite_id"), 10, 64)
		if err != nil {
			http.Error(w, "Missing or invalid 'prerequisite_id' parameter", http.StatusBadRequest)
			return
		}
		ok, err := svc.AddPrerequisite(templateID, prereqID)
		if err != nil {
			log.GetLogger().Errorf("Failed to add prerequisite: %v", err)
			http.Error(w, fmt.Sprintf("Failed to add prerequisite: %v", err), http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "Prerequisite rejected: the edge would create a cycle", http.StatusConflict)
			return
		}
		fmt.Fprintf(w, "Added prerequisite %d -> %d\n", templateID, prereqID)
	}
}

func createTasksHandler(svc *service.TaskflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, err := pathID(r)
		if err != nil {
			http.Error(w, "Invalid event id", http.StatusBadRequest)
			return
		}
		eventDeptID, err := strconv.ParseInt(r.FormValue("event_department_id"), 10, 64)
		if err != nil {
			http.Error(w, "Missing or invalid 'event_department_id' parameter", http.StatusBadRequest)
			return
		}
		templateIDs, err := parseIDList(r.FormValue("template_ids"))
		if err != nil || len(templateIDs) == 0 {
			http.Error(w, "Missing or invalid 'template_ids' parameter", http.StatusBadRequest)
			return
		}
		userID, _ := strconv.ParseInt(r.FormValue("user_id"), 10, 64)

		created, err := svc.CreateTasksWithWorkflows(eventID, eventDeptID, templateIDs, userID)
		if err != nil {
			log.GetLogger().Errorf("Failed to create tasks: %v", err)
			http.Error(w, fmt.Sprintf("Failed to create tasks: %v", err), http.StatusInternalServerError)
			return
		}
		writeJSON(w, created)
	}
}

func reconcileHandler(svc *service.TaskflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, err := pathID(r)
		if err != nil {
			http.Error(w, "Invalid event id", http.StatusBadRequest)
			return
		}
		userID, _ := strconv.ParseInt(r.FormValue("user_id"), 10, 64)
		linked, err := svc.CreateWorkflowsForEvent(eventID, userID)
		if err != nil {
			log.GetLogger().Errorf("Failed to reconcile workflows: %v", err)
			http.Error(w, fmt.Sprintf("Failed to reconcile workflows: %v", err), http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "Linked %d task(s) into workflows for event %d\n", linked, eventID)
	}
}

func completeTaskHandler(svc *service.TaskflowService, store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID, err := pathID(r)
		if err != nil {
			http.Error(w, "Invalid task id", http.StatusBadRequest)
			return
		}
		if err := store.UpdateTaskStatus(taskID, models.CompletedTaskStatus); err != nil {
			log.GetLogger().Errorf("Failed to complete task %d: %v", taskID, err)
			http.Error(w, fmt.Sprintf("Failed to complete task: %v", err), http.StatusInternalServerError)
			return
		}
		promoted, err := svc.HandleTaskCompletion(taskID)
		if err != nil {
			log.GetLogger().Errorf("Failed to cascade activation for task %d: %v", taskID, err)
			http.Error(w, fmt.Sprintf("Failed to cascade activation: %v", err), http.StatusInternalServerError)
			return
		}
		writeJSON(w, promoted)
	}
}

func canDeleteHandler(svc *service.TaskflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID, err := pathID(r)
		if err != nil {
			http.Error(w, "Invalid task id", http.StatusBadRequest)
			return
		}
		userID, _ := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
		role := r.URL.Query().Get("role")
		decision, err := svc.CanDeleteTask(taskID, userID, role)
		if err != nil {
			log.GetLogger().Errorf("Failed to evaluate deletion of task %d: %v", taskID, err)
			http.Error(w, fmt.Sprintf("Failed to evaluate deletion: %v", err), http.StatusInternalServerError)
			return
		}
		writeJSON(w, decision)
	}
}

func deleteTaskHandler(svc *service.TaskflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID, err := pathID(r)
		if err != nil {
			http.Error(w, "Invalid task id", http.StatusBadRequest)
			return
		}
		userID, _ := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
		role := r.URL.Query().Get("role")
		chain := r.URL.Query().Get("chain") == "true"

		decision, err := svc.CanDeleteTask(taskID, userID, role)
		if err != nil {
			log.GetLogger().Errorf("Failed to evaluate deletion of task %d: %v", taskID, err)
			http.Error(w, fmt.Sprintf("Failed to evaluate deletion: %v", err), http.StatusInternalServerError)
			return
		}
		if !decision.CanDelete {
			http.Error(w, decision.Reason, http.StatusForbidden)
			return
		}
		if decision.RequiresChainDeletion && !chain {
			http.Error(w, "Deletion requires chain=true: dependent tasks will be deleted too", http.StatusConflict)
			return
		}
		if err := svc.DeleteTaskWithChain(taskID, decision.RequiresChainDeletion); err != nil {
			log.GetLogger().Errorf("Failed to delete task %d: %v", taskID, err)
			http.Error(w, fmt.Sprintf("Failed to delete task: %v", err), http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "Deleted task %d\n", taskID)
	}
}

func workflowDetailsHandler(svc *service.TaskflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workflowID, err := pathID(r)
		if err != nil {
			http.Error(w, "Invalid workflow id", http.StatusBadRequest)
			return
		}
		details, err := svc.GetWorkflowDetails(workflowID)
		if err != nil {
			log.GetLogger().Errorf("Failed to load workflow %d: %v", workflowID, err)
			http.Error(w, fmt.Sprintf("Failed to load workflow: %v", err), http.StatusInternalServerError)
			return
		}
		if details == nil {
			http.Error(w, "Workflow not found", http.StatusNotFound)
			return
		}
		writeJSON(w, details)
	}
}
