package planner

import (
	"context"
	"fmt"
	"strconv"
)

// Execute commits the human-selected slot. It owns execution_result and
// error_message. A missing selection records an error_message and skips
// the booking call entirely; an unresolvable selection records a failure
// result. Either way the run reaches terminal.
func (st *Stages) Execute(ctx context.Context, state State) Update {
	if state.SelectedOptionID == "" {
		return Update{ErrorMessage: ptr("No option selected for execution")}
	}

	option, ok := resolveOption(state.SchedulingOptions, state.SelectedOptionID)
	if !ok {
		return Update{ExecutionResult: ptr("Failed: Option not found")}
	}

	description := fmt.Sprintf("Scheduled for user %s", state.UserID)
	result, err := st.booker.Book(ctx, BookingRequest{
		Title:       state.Title,
		StartTime:   option.StartTime,
		EndTime:     option.EndTime,
		Description: description,
	})
	if err != nil {
		return Update{
			ExecutionResult: ptr(fmt.Sprintf("Failed: %v", err)),
			ErrorMessage:    ptr(err.Error()),
		}
	}

	return Update{ExecutionResult: ptr(result)}
}

// resolveOption finds the selected option by exact id match first, then by
// interpreting the selection as a displayed option number. The id is
// server-generated and opaque, so callers often refer to an option by the
// number they saw.
func resolveOption(options []PlanOption, selection string) (PlanOption, bool) {
	for _, o := range options {
		if o.ID == selection {
			return o, true
		}
	}
	if num, err := strconv.Atoi(selection); err == nil {
		for _, o := range options {
			if o.OptionNumber == num {
				return o, true
			}
		}
	}
	return PlanOption{}, false
}
