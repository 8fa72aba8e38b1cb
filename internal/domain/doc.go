// Package domain contains the core domain entities and value objects for scalebridge.
//
// This package represents the innermost layer of the architecture. It has
// no dependencies on infrastructure concerns (network, logging, printers)
// and contains only the data model of the conversion pipeline.
//
// # Entities
//
//   - [WeightRecord]: A validated weighing event parsed from one scale frame
//   - [Document]: A rendered label as an ordered printer command sequence
//   - [PrintJob]: A Document plus delivery bookkeeping (sequence, attempts)
//   - [Status]: The closed weighment status enumeration
//   - [ConnectionState]: The sender's outbound connection state
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Testable without mocks or external systems
package domain
