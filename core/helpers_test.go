package core

// Test logger used across tests in this package

type TestLogger struct{}

func (*TestLogger) Criticalf(string, ...interface{}) {}
func (*TestLogger) Debugf(string, ...interface{})    {}
func (*TestLogger) Errorf(string, ...interface{})    {}
func (*TestLogger) Noticef(string, ...interface{})   {}
func (*TestLogger) Warningf(string, ...interface{})  {}
