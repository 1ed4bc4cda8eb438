package observability

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"github.com/aws/aws-xray-sdk-go/xray"
)

// InstrumentAWSClients wires X-Ray tracing into every AWS SDK call made
// through the given config. Safe to call once at startup; subsegments appear
// under the active Lambda segment automatically.
func InstrumentAWSClients(cfg *awssdk.Config) {
	awsv2.AWSV2Instrumentor(&cfg.APIOptions)
}

// TraceSegment runs fn inside a named subsegment, recording its error if any.
// Outside a sampled trace it degrades to calling fn directly.
func TraceSegment(ctx context.Context, name string, fn func(context.Context) error) error {
	if xray.GetSegment(ctx) == nil {
		return fn(ctx)
	}
	return xray.Capture(ctx, name, fn)
}

// AddAnnotation attaches an indexed annotation to the active segment.
func AddAnnotation(ctx context.Context, key, value string) {
	if seg := xray.GetSegment(ctx); seg != nil {
		_ = seg.AddAnnotation(key, value)
	}
}
