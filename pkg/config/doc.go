// Package config provides unified configuration management for nebula-chart.
//
// Every connector, source or destination, receives a BaseConfig. The common
// sections (performance, security, observability) are shared; anything
// connector-specific lives under properties and is decoded by the connector
// with DecodeProperties into its own typed structure.
//
// # Usage
//
//	cfg, err := config.LoadBaseConfig("chart.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Environment Variable Substitution
//
//	# sales.yaml
//	name: sales
//	type: csv
//	security:
//	  credentials:
//	    path: ${SALES_CSV}
//
// # Chart destination
//
//	name: sales-chart
//	type: chart
//	properties:
//	  chart_type: LINE
//	  x_axis_type: NUMBER
//	  x_axis_name: month
//	  y_axis_type: NUMBER
//	  y_axis_name: revenue
//	  serieses:
//	    - {name: revenue, x: month, y: revenue}
//	  output:
//	    path: revenue.png
//
// Values under properties are re-encoded as YAML before decoding, so typed
// connector configurations can rely on yaml tags and custom unmarshalers.
package config
