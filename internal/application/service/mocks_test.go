package service

import (
	"context"
	"time"

	"github.com/kaiwen/taskline/internal/domain/entity"
)

// Mock implementations shared by the service tests.

type mockTaskRepo struct {
	createFunc             func(ctx context.Context, task *entity.Task) error
	getByIDFunc            func(ctx context.Context, id string) (*entity.Task, error)
	updateFunc             func(ctx context.Context, task *entity.Task) error
	deleteFunc             func(ctx context.Context, id string) error
	deleteByGroupIDFunc    func(ctx context.Context, groupID string) (int64, error)
	listByGroupFunc        func(ctx context.Context, groupID string, statuses []entity.TaskStatus) ([]*entity.Task, error)
	listByStatusFunc       func(ctx context.Context, statuses []entity.TaskStatus) ([]*entity.Task, error)
	listDueBetweenFunc     func(ctx context.Context, from, to time.Time, statuses []entity.TaskStatus) ([]*entity.Task, error)
	listPendingReviewFunc  func(ctx context.Context) ([]*entity.Task, error)
	findRecentCreationFunc func(ctx context.Context, groupID, title, createdBy string, since time.Time) (*entity.Task, error)
}

func (m *mockTaskRepo) Create(ctx context.Context, task *entity.Task) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, task)
	}
	return nil
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id string) (*entity.Task, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockTaskRepo) Update(ctx context.Context, task *entity.Task) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, task)
	}
	return nil
}

func (m *mockTaskRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockTaskRepo) DeleteByGroupID(ctx context.Context, groupID string) (int64, error) {
	if m.deleteByGroupIDFunc != nil {
		return m.deleteByGroupIDFunc(ctx, groupID)
	}
	return 0, nil
}

func (m *mockTaskRepo) ListByGroup(ctx context.Context, groupID string, statuses []entity.TaskStatus) ([]*entity.Task, error) {
	if m.listByGroupFunc != nil {
		return m.listByGroupFunc(ctx, groupID, statuses)
	}
	return nil, nil
}

func (m *mockTaskRepo) ListByStatus(ctx context.Context, statuses []entity.TaskStatus) ([]*entity.Task, error) {
	if m.listByStatusFunc != nil {
		return m.listByStatusFunc(ctx, statuses)
	}
	return nil, nil
}

func (m *mockTaskRepo) ListDueBetween(ctx context.Context, from, to time.Time, statuses []entity.TaskStatus) ([]*entity.Task, error) {
	if m.listDueBetweenFunc != nil {
		return m.listDueBetweenFunc(ctx, from, to, statuses)
	}
	return nil, nil
}

func (m *mockTaskRepo) ListPendingReview(ctx context.Context) ([]*entity.Task, error) {
	if m.listPendingReviewFunc != nil {
		return m.listPendingReviewFunc(ctx)
	}
	return nil, nil
}

func (m *mockTaskRepo) FindRecentCreation(ctx context.Context, groupID, title, createdBy string, since time.Time) (*entity.Task, error) {
	if m.findRecentCreationFunc != nil {
		return m.findRecentCreationFunc(ctx, groupID, title, createdBy, since)
	}
	return nil, nil
}

// storeTaskRepo is a stateful variant for flow tests spanning several
// lifecycle operations.
type storeTaskRepo struct {
	mockTaskRepo
	tasks map[string]*entity.Task
}

func newStoreTaskRepo() *storeTaskRepo {
	r := &storeTaskRepo{tasks: make(map[string]*entity.Task)}
	r.createFunc = func(ctx context.Context, task *entity.Task) error {
		r.tasks[task.ID] = task
		return nil
	}
	r.getByIDFunc = func(ctx context.Context, id string) (*entity.Task, error) {
		return r.tasks[id], nil
	}
	r.updateFunc = func(ctx context.Context, task *entity.Task) error {
		r.tasks[task.ID] = task
		return nil
	}
	return r
}

type mockTemplateRepo struct {
	createFunc  func(ctx context.Context, tpl *entity.RecurringTaskTemplate) error
	getByIDFunc func(ctx context.Context, id string) (*entity.RecurringTaskTemplate, error)
	updateFunc  func(ctx context.Context, tpl *entity.RecurringTaskTemplate) error
	listDueFunc func(ctx context.Context, now time.Time) ([]*entity.RecurringTaskTemplate, error)
}

func (m *mockTemplateRepo) Create(ctx context.Context, tpl *entity.RecurringTaskTemplate) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, tpl)
	}
	return nil
}

func (m *mockTemplateRepo) GetByID(ctx context.Context, id string) (*entity.RecurringTaskTemplate, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockTemplateRepo) Update(ctx context.Context, tpl *entity.RecurringTaskTemplate) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, tpl)
	}
	return nil
}

func (m *mockTemplateRepo) ListDue(ctx context.Context, now time.Time) ([]*entity.RecurringTaskTemplate, error) {
	if m.listDueFunc != nil {
		return m.listDueFunc(ctx, now)
	}
	return nil, nil
}

type mockGroupRepo struct {
	getByIDFunc     func(ctx context.Context, id string) (*entity.Group, error)
	listActiveFunc  func(ctx context.Context) ([]*entity.Group, error)
	listBotLeftFunc func(ctx context.Context) ([]*entity.Group, error)
	markBotLeftFunc func(ctx context.Context, id string) error
	deleteFunc      func(ctx context.Context, id string) error
}

func (m *mockGroupRepo) GetByID(ctx context.Context, id string) (*entity.Group, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockGroupRepo) ListActive(ctx context.Context) ([]*entity.Group, error) {
	if m.listActiveFunc != nil {
		return m.listActiveFunc(ctx)
	}
	return nil, nil
}

func (m *mockGroupRepo) ListBotLeft(ctx context.Context) ([]*entity.Group, error) {
	if m.listBotLeftFunc != nil {
		return m.listBotLeftFunc(ctx)
	}
	return nil, nil
}

func (m *mockGroupRepo) MarkBotLeft(ctx context.Context, id string) error {
	if m.markBotLeftFunc != nil {
		return m.markBotLeftFunc(ctx, id)
	}
	return nil
}

func (m *mockGroupRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

type mockKPIRepo struct {
	upsertFunc      func(ctx context.Context, score *entity.KPIScore) error
	recordZeroFunc  func(ctx context.Context, groupID, userID string, periodStart time.Time) error
	listByGroupFunc func(ctx context.Context, groupID string) ([]*entity.KPIScore, error)
}

func (m *mockKPIRepo) Upsert(ctx context.Context, score *entity.KPIScore) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, score)
	}
	return nil
}

func (m *mockKPIRepo) RecordZero(ctx context.Context, groupID, userID string, periodStart time.Time) error {
	if m.recordZeroFunc != nil {
		return m.recordZeroFunc(ctx, groupID, userID, periodStart)
	}
	return nil
}

func (m *mockKPIRepo) ListByGroup(ctx context.Context, groupID string) ([]*entity.KPIScore, error) {
	if m.listByGroupFunc != nil {
		return m.listByGroupFunc(ctx, groupID)
	}
	return nil, nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockFileLinker struct {
	linkFileFunc   func(ctx context.Context, fileID, taskID string) error
	unlinkFileFunc func(ctx context.Context, fileID, taskID string) error
}

func (m *mockFileLinker) LinkFile(ctx context.Context, fileID, taskID string) error {
	if m.linkFileFunc != nil {
		return m.linkFileFunc(ctx, fileID, taskID)
	}
	return nil
}

func (m *mockFileLinker) UnlinkFile(ctx context.Context, fileID, taskID string) error {
	if m.unlinkFileFunc != nil {
		return m.unlinkFileFunc(ctx, fileID, taskID)
	}
	return nil
}

type mockNotifier struct {
	sendToGroupFunc func(ctx context.Context, groupID string, payload string) error
	sendToUserFunc  func(ctx context.Context, userID string, payload string) error
}

func (m *mockNotifier) SendToGroup(ctx context.Context, groupID string, payload string) error {
	if m.sendToGroupFunc != nil {
		return m.sendToGroupFunc(ctx, groupID, payload)
	}
	return nil
}

func (m *mockNotifier) SendToUser(ctx context.Context, userID string, payload string) error {
	if m.sendToUserFunc != nil {
		return m.sendToUserFunc(ctx, userID, payload)
	}
	return nil
}

type mockCalendarSync struct {
	upsertFunc func(ctx context.Context, task *entity.Task, userID string) error
	removeFunc func(ctx context.Context, task *entity.Task, userID string) error
}

func (m *mockCalendarSync) UpsertUserEvent(ctx context.Context, task *entity.Task, userID string) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, task, userID)
	}
	return nil
}

func (m *mockCalendarSync) RemoveUserEvent(ctx context.Context, task *entity.Task, userID string) error {
	if m.removeFunc != nil {
		return m.removeFunc(ctx, task, userID)
	}
	return nil
}

// mockClock is a settable fixed clock.
type mockClock struct {
	now time.Time
}

func (c *mockClock) Now() time.Time { return c.now }

func (c *mockClock) Location(name string) (*time.Location, error) {
	return time.LoadLocation(name)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

// mockTaskService stubs the lifecycle engine for generator tests.
type mockTaskService struct {
	createTaskFunc func(ctx context.Context, spec CreateTaskSpec) (*entity.Task, error)
}

func (m *mockTaskService) CreateTask(ctx context.Context, spec CreateTaskSpec) (*entity.Task, error) {
	if m.createTaskFunc != nil {
		return m.createTaskFunc(ctx, spec)
	}
	return &entity.Task{ID: "task-1"}, nil
}

func (m *mockTaskService) RecordSubmission(ctx context.Context, taskID, submitterID string, fileIDs []string, comment string, links []string) (*entity.Task, error) {
	return nil, nil
}

func (m *mockTaskService) ApproveReview(ctx context.Context, taskID, approverID string) (*entity.Task, error) {
	return nil, nil
}

func (m *mockTaskService) ApproveCompletion(ctx context.Context, taskID, creatorID string) (*entity.Task, error) {
	return nil, nil
}

func (m *mockTaskService) CompleteTask(ctx context.Context, taskID, actorID string) (*entity.Task, error) {
	return nil, nil
}

func (m *mockTaskService) RejectAndExtend(ctx context.Context, taskID, rejectorID string, extensionDays int, reason string) (*entity.Task, error) {
	return nil, nil
}

func (m *mockTaskService) MarkOverdue(ctx context.Context, taskID string) (*entity.Task, error) {
	return nil, nil
}

func (m *mockTaskService) AutoApproveIfPastReviewDeadline(ctx context.Context, taskID string) (*entity.Task, error) {
	return nil, nil
}

func (m *mockTaskService) RecordReminderSent(ctx context.Context, taskID string, rec entity.ReminderRecord) error {
	return nil
}

func (m *mockTaskService) GetTask(ctx context.Context, id string) (*entity.Task, error) {
	return nil, nil
}

func (m *mockTaskService) ListGroupTasks(ctx context.Context, groupID string, statuses []entity.TaskStatus) ([]*entity.Task, error) {
	return nil, nil
}

func (m *mockTaskService) DeleteTask(ctx context.Context, id string) error {
	return nil
}
