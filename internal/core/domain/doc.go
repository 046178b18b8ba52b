// Package domain defines the core business entities for memoir.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Profile: The person whose testimony is recorded
//   - Answer: A recorded question/answer pair
//   - AnswerEmbedding: The derived vector for an answer
//   - Reply: A composed response with its citations
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
