// Hand-written in the layout MockGen produces for internal/backend/backend.go.

// Package backendmock is a hand-written GoMock package.
package backendmock

import (
	reflect "reflect"

	gomock "github.com/golang/mock/gomock"

	backend "github.com/probcomp/bayesdb/internal/backend"
)

// MockBackend is a mock of the backend.Backend interface.
type MockBackend struct {
	ctrl     *gomock.Controller
	recorder *MockBackendMockRecorder
}

// MockBackendMockRecorder is the mock recorder for MockBackend.
type MockBackendMockRecorder struct {
	mock *MockBackend
}

// NewMockBackend creates a new mock instance.
func NewMockBackend(ctrl *gomock.Controller) *MockBackend {
	mock := &MockBackend{ctrl: ctrl}
	mock.recorder = &MockBackendMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockBackend) EXPECT() *MockBackendMockRecorder {
	return m.recorder
}

// Name mocks base method.
func (m *MockBackend) Name() string {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Name")
	ret0, _ := ret[0].(string)
	return ret0
}

// Name indicates an expected call of Name.
func (mr *MockBackendMockRecorder) Name() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Name", reflect.TypeOf((*MockBackend)(nil).Name))
}

// CreateGenerator mocks base method.
func (m *MockBackend) CreateGenerator(generatorID int64, population backend.PopulationInfo, schema string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CreateGenerator", generatorID, population, schema)
	ret0, _ := ret[0].(error)
	return ret0
}

// CreateGenerator indicates an expected call of CreateGenerator.
func (mr *MockBackendMockRecorder) CreateGenerator(generatorID, population, schema interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CreateGenerator", reflect.TypeOf((*MockBackend)(nil).CreateGenerator), generatorID, population, schema)
}

// DropGenerator mocks base method.
func (m *MockBackend) DropGenerator(generatorID int64) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DropGenerator", generatorID)
	ret0, _ := ret[0].(error)
	return ret0
}

// DropGenerator indicates an expected call of DropGenerator.
func (mr *MockBackendMockRecorder) DropGenerator(generatorID interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DropGenerator", reflect.TypeOf((*MockBackend)(nil).DropGenerator), generatorID)
}

// InitializeModels mocks base method.
func (m *MockBackend) InitializeModels(generatorID int64, n int) ([]int, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "InitializeModels", generatorID, n)
	ret0, _ := ret[0].([]int)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// InitializeModels indicates an expected call of InitializeModels.
func (mr *MockBackendMockRecorder) InitializeModels(generatorID, n interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "InitializeModels", reflect.TypeOf((*MockBackend)(nil).InitializeModels), generatorID, n)
}

// DropModels mocks base method.
func (m *MockBackend) DropModels(generatorID int64, modelIDs []int) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DropModels", generatorID, modelIDs)
	ret0, _ := ret[0].(error)
	return ret0
}

// DropModels indicates an expected call of DropModels.
func (mr *MockBackendMockRecorder) DropModels(generatorID, modelIDs interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DropModels", reflect.TypeOf((*MockBackend)(nil).DropModels), generatorID, modelIDs)
}

// AnalyzeModels mocks base method.
func (m *MockBackend) AnalyzeModels(generatorID int64, modelIDs []int, program backend.AnalyzeProgram, checkpoint backend.AnalyzeBudget) (float64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AnalyzeModels", generatorID, modelIDs, program, checkpoint)
	ret0, _ := ret[0].(float64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// AnalyzeModels indicates an expected call of AnalyzeModels.
func (mr *MockBackendMockRecorder) AnalyzeModels(generatorID, modelIDs, program, checkpoint interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AnalyzeModels", reflect.TypeOf((*MockBackend)(nil).AnalyzeModels), generatorID, modelIDs, program, checkpoint)
}

// LogpdfJoint mocks base method.
func (m *MockBackend) LogpdfJoint(generatorID int64, modelID int, targets, constraints []backend.Target) (float64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "LogpdfJoint", generatorID, modelID, targets, constraints)
	ret0, _ := ret[0].(float64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// LogpdfJoint indicates an expected call of LogpdfJoint.
func (mr *MockBackendMockRecorder) LogpdfJoint(generatorID, modelID, targets, constraints interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "LogpdfJoint", reflect.TypeOf((*MockBackend)(nil).LogpdfJoint), generatorID, modelID, targets, constraints)
}

// SimulateJoint mocks base method.
func (m *MockBackend) SimulateJoint(generatorID int64, modelID int, targets []backend.Varno, constraints []backend.Target, nSamples int) ([][]interface{}, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SimulateJoint", generatorID, modelID, targets, constraints, nSamples)
	ret0, _ := ret[0].([][]interface{})
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// SimulateJoint indicates an expected call of SimulateJoint.
func (mr *MockBackendMockRecorder) SimulateJoint(generatorID, modelID, targets, constraints, nSamples interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SimulateJoint", reflect.TypeOf((*MockBackend)(nil).SimulateJoint), generatorID, modelID, targets, constraints, nSamples)
}

// ColumnDependenceProbability mocks base method.
func (m *MockBackend) ColumnDependenceProbability(generatorID int64, modelID int, v0, v1 backend.Varno) (float64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ColumnDependenceProbability", generatorID, modelID, v0, v1)
	ret0, _ := ret[0].(float64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ColumnDependenceProbability indicates an expected call of ColumnDependenceProbability.
func (mr *MockBackendMockRecorder) ColumnDependenceProbability(generatorID, modelID, v0, v1 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ColumnDependenceProbability", reflect.TypeOf((*MockBackend)(nil).ColumnDependenceProbability), generatorID, modelID, v0, v1)
}

// ColumnMutualInformation mocks base method.
func (m *MockBackend) ColumnMutualInformation(generatorID int64, modelID int, v0, v1 backend.Varno, constraints []backend.Target, nSamples int) (float64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ColumnMutualInformation", generatorID, modelID, v0, v1, constraints, nSamples)
	ret0, _ := ret[0].(float64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ColumnMutualInformation indicates an expected call of ColumnMutualInformation.
func (mr *MockBackendMockRecorder) ColumnMutualInformation(generatorID, modelID, v0, v1, constraints, nSamples interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ColumnMutualInformation", reflect.TypeOf((*MockBackend)(nil).ColumnMutualInformation), generatorID, modelID, v0, v1, constraints, nSamples)
}

// RowSimilarity mocks base method.
func (m *MockBackend) RowSimilarity(generatorID int64, modelID int, r0, r1 int64, contextVarno backend.Varno, hasContext bool) (float64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "RowSimilarity", generatorID, modelID, r0, r1, contextVarno, hasContext)
	ret0, _ := ret[0].(float64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// RowSimilarity indicates an expected call of RowSimilarity.
func (mr *MockBackendMockRecorder) RowSimilarity(generatorID, modelID, r0, r1, contextVarno, hasContext interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "RowSimilarity", reflect.TypeOf((*MockBackend)(nil).RowSimilarity), generatorID, modelID, r0, r1, contextVarno, hasContext)
}

// RowPredictiveProbability mocks base method.
func (m *MockBackend) RowPredictiveProbability(generatorID int64, modelID int, row int64, varno backend.Varno, storedValue interface{}, constraints []backend.Target) (float64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "RowPredictiveProbability", generatorID, modelID, row, varno, storedValue, constraints)
	ret0, _ := ret[0].(float64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// RowPredictiveProbability indicates an expected call of RowPredictiveProbability.
func (mr *MockBackendMockRecorder) RowPredictiveProbability(generatorID, modelID, row, varno, storedValue, constraints interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "RowPredictiveProbability", reflect.TypeOf((*MockBackend)(nil).RowPredictiveProbability), generatorID, modelID, row, varno, storedValue, constraints)
}

// ColumnValueMap mocks base method.
func (m *MockBackend) ColumnValueMap(generatorID int64, varno backend.Varno) ([]backend.ValueLabel, bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ColumnValueMap", generatorID, varno)
	ret0, _ := ret[0].([]backend.ValueLabel)
	ret1, _ := ret[1].(bool)
	ret2, _ := ret[2].(error)
	return ret0, ret1, ret2
}

// ColumnValueMap indicates an expected call of ColumnValueMap.
func (mr *MockBackendMockRecorder) ColumnValueMap(generatorID, varno interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ColumnValueMap", reflect.TypeOf((*MockBackend)(nil).ColumnValueMap), generatorID, varno)
}
