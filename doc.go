// Package nebula is the root of nebula-chart, a chart output for the Nebula
// Extract & Load runner. Records read by a source connector are buffered
// per task, assigned to named series by column lookup or by value rules,
// and rendered at end of stream as a BAR, LINE, SCATTER or STACKED_BAR
// chart.
//
// # Architecture
//
// A run moves through four stages:
//
// 1. A source (CSV or JSON) discovers or declares a typed schema and
// streams pool.Record values.
//
// 2. The pipeline batches records in source order and hands them to the
// chart destination as one batch stream.
//
// 3. The chart destination converts each batch into a typed page. Its
// output task keeps every row in a record buffer and, once the stream
// ends, aggregates the rows into series in a second pass.
//
// 4. The finished chart goes to the presenters on a dedicated goroutine:
// a PNG/SVG image rendered with go-chart, a text table, or a JSON
// document. The task commits as soon as the first presenter has started.
//
// # Quick Start
//
//	src, _ := registry.CreateSource("csv", sourceConfig)
//	dst, _ := registry.CreateDestination("chart", chartConfig)
//	_ = src.Initialize(ctx, sourceConfig)
//	_ = dst.Initialize(ctx, chartConfig)
//
//	p := pipeline.NewSimplePipeline(src, dst, nil, logger.Get())
//	if err := p.Run(ctx); err != nil {
//	    return err
//	}
//	return dst.Close(ctx) // waits for started presentations
//
// A chart destination configuration:
//
//	name: sales-chart
//	type: chart
//	properties:
//	  chart_type: BAR
//	  x_axis_type: CATEGORY
//	  x_axis_name: month
//	  y_axis_type: NUMBER
//	  y_axis_name: units
//	  serieses:
//	    - {name: north, x: month, y: units}
//	    - {name: south, x: month, y: units}
//	  series_mapping_rule:
//	    - {column: region, value: north, series: north}
//	    - {column: region, value: south, series: south}
//	  output:
//	    path: sales.png
//	    table: true
//
// # Key Packages
//
//	pkg/connector/destinations/chart - configuration, buffer, aggregator, renderer, presenters
//	pkg/connector/sources/csv        - CSV source with declared or inferred columns
//	pkg/connector/sources/json       - JSON lines / array source
//	pkg/connector/core               - connector contracts, pages, output plugin lifecycle
//	pkg/connector/registry           - connector factories and catalog
//	pkg/schema                       - column declarations and type inference
//	pkg/config                       - BaseConfig and YAML loading
//	pkg/errors                       - structured errors
//	pkg/logger                       - zap logging
//	pkg/metrics                      - Prometheus collectors
//	pkg/observability                - OpenTelemetry tracing
//
// Environment variables are supported in configuration files with
// ${VAR_NAME} syntax, and CLI flags can be set as NEBULA_<FLAG>.
package nebula
