package cnavi

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("cnavi/lib/platforms/cnavi")
