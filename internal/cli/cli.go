package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Amine-Ecssr/event-management-system-sub010/internal/log"
	internal_storage "github.com/Amine-Ecssr/event-management-system-sub010/internal/storage"
	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/models"
	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/service"
)

func SetupCLI(rootCmd *cobra.Command) {
	validateEdgeCmd := &cobra.Command{
		Use:   "validate-edge [template-id] [prerequisite-id]",
		Short: "Check whether a new prerequisite edge would keep the template graph acyclic",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			svc, closeStore := initService(cmd)
			defer closeStore()
			templateID := parseID(args[0])
			prereqID := parseID(args[1])
			ok, err := svc.ValidateNoCycle(templateID, prereqID)
			if err != nil {
				fatal("failed to validate edge: %v", err)
			}
			if !ok {
				fmt.Fprintf(os.Stdout, "Edge %d -> %d rejected: it would create a cycle\n", templateID, prereqID)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stdout, "Edge %d -> %d is valid\n", templateID, prereqID)
		},
	}

	requiredCmd := &cobra.Command{
		Use:   "required [template-ids]",
		Short: "Preview the full template set a selection pulls in, with its chains",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			svc, closeStore := initService(cmd)
			defer closeStore()
			required, err := svc.GetRequiredTaskTemplates(parseIDList(args[0]))
			if err != nil {
				fatal("failed to resolve required templates: %v", err)
			}
			printJSON(required)
		},
	}

	createTasksCmd := &cobra.Command{
		Use:   "create-tasks [event-id] [event-department-id] [template-ids]",
		Short: "Instantiate tasks for one event and department from the selected templates",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			svc, closeStore := initService(cmd)
			defer closeStore()
			userID, _ := cmd.Flags().GetInt64("user")
			created, err := svc.CreateTasksWithWorkflows(parseID(args[0]), parseID(args[1]), parseIDList(args[2]), userID)
			if err != nil {
				fatal("failed to create tasks: %v", err)
			}
			if len(created) == 0 {
				fmt.Fprintf(os.Stdout, "No tasks created.\n")
				return
			}
			for _, t := range created {
				fmt.Fprintf(os.Stdout, "- ID: %d, Title: %s, Status: %s\n", t.ID, t.Title, t.Status)
			}
		},
	}
	createTasksCmd.Flags().Int64("user", 0, "Creating user id")

	reconcileCmd := &cobra.Command{
		Use:   "reconcile [event-id]",
		Short: "Backfill workflow links across an entire event",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			svc, closeStore := initService(cmd)
			defer closeStore()
			userID, _ := cmd.Flags().GetInt64("user")
			linked, err := svc.CreateWorkflowsForEvent(parseID(args[0]), userID)
			if err != nil {
				fatal("failed to reconcile workflows: %v", err)
			}
			fmt.Fprintf(os.Stdout, "Linked %d task(s) into workflows\n", linked)
		},
	}
	reconcileCmd.Flags().Int64("user", 0, "Reconciling user id")

	completeCmd := &cobra.Command{
		Use:   "complete [task-id]",
		Short: "Mark a task completed and cascade activation to waiting dependents",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			dbConnStr, _ := cmd.Flags().GetString("db")
			store := initStore(dbConnStr)
			defer store.Close()
			svc := service.NewTaskflowService(store, log.GetLogger())
			taskID := parseID(args[0])
			if err := store.UpdateTaskStatus(taskID, models.CompletedTaskStatus); err != nil {
				fatal("failed to complete task %d: %v", taskID, err)
			}
			promoted, err := svc.HandleTaskCompletion(taskID)
			if err != nil {
				fatal("failed to cascade activation: %v", err)
			}
			fmt.Fprintf(os.Stdout, "Completed task %d; promoted %d waiting task(s)\n", taskID, len(promoted))
			for _, t := range promoted {
				fmt.Fprintf(os.Stdout, "- ID: %d, Title: %s, Status: %s\n", t.ID, t.Title, t.Status)
			}
		},
	}

	canDeleteCmd := &cobra.Command{
		Use:   "can-delete [task-id]",
		Short: "Check whether a task may be deleted for the given role",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			svc, closeStore := initService(cmd)
			defer closeStore()
			role, _ := cmd.Flags().GetString("role")
			userID, _ := cmd.Flags().GetInt64("user")
			decision, err := svc.CanDeleteTask(parseID(args[0]), userID, role)
			if err != nil {
				fatal("failed to evaluate deletion: %v", err)
			}
			printJSON(decision)
		},
	}
	canDeleteCmd.Flags().String("role", "", "Caller role (admin, superadmin)")
	canDeleteCmd.Flags().Int64("user", 0, "Caller user id")

	deleteCmd := &cobra.Command{
		Use:   "delete [task-id]",
		Short: "Delete a task, optionally with its dependent chain",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			svc, closeStore := initService(cmd)
			defer closeStore()
			chain, _ := cmd.Flags().GetBool("chain")
			taskID := parseID(args[0])
			if err := svc.DeleteTaskWithChain(taskID, chain); err != nil {
				fatal("failed to delete task %d: %v", taskID, err)
			}
			fmt.Fprintf(os.Stdout, "Deleted task %d\n", taskID)
		},
	}
	deleteCmd.Flags().Bool("chain", false, "Delete dependent tasks first")

	rootCmd.AddCommand(validateEdgeCmd, requiredCmd, createTasksCmd, reconcileCmd, completeCmd, canDeleteCmd, deleteCmd)
}

func initService(cmd *cobra.Command) (*service.TaskflowService, func()) {
	dbConnStr, err := cmd.Flags().GetString("db")
	if err != nil {
		log.GetLogger().Errorf("Error retrieving db flag: %v", err)
		os.Exit(1)
	}
	store := initStore(dbConnStr)
	return service.NewTaskflowService(store, log.GetLogger()), func() { store.Close() }
}

func initStore(dbConnStr string) *internal_storage.PostgresStore {
	store, err := internal_storage.InitStore(dbConnStr)
	if err != nil {
		log.GetLogger().Errorf("Failed to initialize store: %v", err)
		os.Exit(1)
	}
	return store
}

func parseID(raw string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		fatal("invalid id '%s': %v", raw, err)
	}
	return id
}

func parseIDList(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		ids = append(ids, parseID(part))
	}
	return ids
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal("failed to encode output: %v", err)
	}
	fmt.Fprintln(os.Stdout, string(out))
}

func fatal(format string, args ...interface{}) {
	log.GetLogger().Errorf(format, args...)
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
