// Package harness provides end-to-end conformance testing for cfrstat.
//
// The harness loads agency reference data and title documents into a fresh
// store, drives the engine through a flow of ingest, compute and rollup
// steps, and checks each step's outcome and the final state of the store.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	agencies:
//	  - slug: agency-a
//	    short_name: AA
//	    references: [{ title: 1, chapter: I }]
//	documents:
//	  sample: |
//	    <ECFR>...</ECFR>
//	flow:
//	  - ingest: { title: 1, date: 2024-01-01, document: sample }
//	    expect:
//	      stats: { accepted: 2, written: 2 }
//	  - compute: { title: 1, start: 2024-01-01, end: 2024-01-31 }
//	  - rollup:
//	      metric: word_count
//	      level: part
//	      agencies: [AA]
//	      start: 2024-01-01
//	      end: 2024-01-01
//	    expect:
//	      rows:
//	        - { agency: agency-a, title: 1, level: Part I, date: 2024-01-01, value: 5 }
//	assertions:
//	  - type: counts
//	    expect: { sections: 2, metrics: 10 }
//	  - type: metric_value
//	    title: 1
//	    date: 2024-01-01
//	    section: "101"
//	    metric: word_count
//	    value: 3
//
// A step's expect clause may instead name an input error code
// (expect: { error: UNKNOWN_AGENCY }); the step must then fail with it.
//
// # Assertion Types
//
//   - counts: compares table row counts (sections, dimensions, metrics,
//     agencies, titles, runs); only listed tables are checked
//   - metric_value: checks one stored metric value
//   - dimension: checks the agency slug and level labels stored for a section
//
// # Deterministic Testing
//
// Every scenario runs in an in-memory SQLite database with sequential run
// ids and a deterministic clock, so the step trace is identical across runs
// and can be compared against a golden snapshot with RunWithGolden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/two_sections.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
