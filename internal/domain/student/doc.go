// Package student contains the learner-side model of the ECOLead engine.
//
// The package defines:
//
//   - Student: a plain record with a role tag, a specialization track and the
//     last advisory tilt label.
//   - Completion: one finished mission as stored by the platform (chosen option,
//     time spent, active events, learning flags).
//   - Repository interfaces: Repository (student records), ProgressStore
//     (completion history) and TiltCache (hot copy of the current tilt).
//
// # Architecture
//
// The package has no external dependencies. Implementations of its interfaces
// live in infrastructure/persistence.
//
// # Usage
//
//	st, err := repo.GetByID(ctx, studentID)
//	if err != nil {
//	    return err
//	}
//	if !st.IsStudent() {
//	    return shared.ErrStudentNotFound
//	}
//
//	history, err := progress.RecentCompletions(ctx, st.ID, 32)
package student
