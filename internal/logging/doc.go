// Package logging provides the application's loggers.
//
// A Service owns four zerolog loggers, selected by Kind:
//
//   - Control: feeds the log views in the main window through ControlSinks
//   - File: the general application log
//   - StackTrace: reports of unexpected errors
//   - Freeze: notices about a stalled UI loop
//
// File loggers write through rolling lumberjack files under the log
// directory:
//
//	<dir>/app-log.txt
//	<dir>/stack-trace/app-stack-trace.txt
//	<dir>/freeze/app-freeze-log.txt
//
// A ControlSink is an io.Writer for zerolog that decodes each record and
// raises it on its own slots, so a view can subscribe to log output with
// eventstore.Add.
package logging
