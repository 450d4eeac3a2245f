package canele

// Hooks are the lifecycle stages of Create and Save, run in a fixed
// order around the SQL statement:
//
//	Create: auto-assign -> BeforeCreate -> validate -> INSERT -> refresh -> AfterCreate
//	Save:   auto-assign -> BeforeSave   -> validate -> UPDATE -> refresh -> AfterSave
//
// A returned error aborts the operation before any SQL executes (or,
// for the After hooks, after it has been refreshed).
type Hooks interface {
	BeforeCreate(*Record) error
	AfterCreate(*Record) error
	BeforeSave(*Record) error
	AfterSave(*Record) error
}

// NopHooks is the default Hooks implementation with no-op stages.
// Embed it to override only some stages.
type NopHooks struct{}

func (NopHooks) BeforeCreate(*Record) error { return nil }
func (NopHooks) AfterCreate(*Record) error  { return nil }
func (NopHooks) BeforeSave(*Record) error   { return nil }
func (NopHooks) AfterSave(*Record) error    { return nil }
