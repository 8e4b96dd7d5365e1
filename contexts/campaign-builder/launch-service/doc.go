// Package launchservice turns a campaign specification into ordered remote
// creates (campaign, ad sets, creatives, ads) and records every stage
// attempt as a progress event on a durable job.
//
// Submission only creates a queued job and hands its id to the launch
// queue. A worker claims the job, runs the stage pipeline, and resolves it
// to done, error or canceled.
package launchservice
