// Package store persists workflows, credentials, and the commerce domain
// tables the built-in inventory and order tools read. Credential and
// commerce queries are filtered by the owning organization; LoadWorkflow and
// FinishRun look their rows up by id alone, with no organization filter.
package store
