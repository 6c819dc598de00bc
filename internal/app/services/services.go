// Package services holds the business rules of the school administration:
// the generic resource services, accounts and sessions, settings, the
// directory and dashboard, messaging and reports.
//
// Services own validation that needs the database (active academic year,
// overlapping holidays, duplicate accounts) and invalidate the query cache of
// every resource whose lists their writes change.
package services
