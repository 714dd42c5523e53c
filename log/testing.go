package log

// TB is the subset of testing.TB the test logger needs.
type TB interface {
	Errorf(string, ...interface{})
	Fatalf(string, ...interface{})
	Logf(string, ...interface{})
	Helper()
}

// Testing routes log lines into a test, failing it on Error and Crit.
type Testing struct {
	TB
	Tags []interface{}
}

func (l *Testing) Debug(m string, s ...interface{}) {
	l.Helper()
	l.Logf("%s", tfmt("DEB ", m, s, l.Tags))
}
func (l *Testing) Error(m string, s ...interface{}) {
	l.Helper()
	l.Errorf("%s", tfmt("ERR ", m, s, l.Tags))
}
func (l *Testing) Crit(m string, s ...interface{}) {
	l.Helper()
	l.Fatalf("%s", tfmt("CRI ", m, s, l.Tags))
}
func (l *Testing) With(tags ...interface{}) Logger {
	t := make([]interface{}, 0, len(tags)+len(l.Tags))
	t = append(t, tags...)
	t = append(t, l.Tags...)
	return &Testing{TB: l.TB, Tags: t}
}
