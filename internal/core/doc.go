// Package core is the conversion pipeline behind the web UI.
//
// It owns no transport or session state. Callers hand it an uploaded blob and
// get back a parsed table plus its preview, then ask it to export that table.
// The web layer, tests, or a future CLI can drive it the same way.
//
// # Pipeline
//
// An upload moves through three stages, each in its own package:
//
//  1. [decompress.Resolver] unwraps zip, tar and single-stream codecs by
//     file-name suffix and hands back the first inner payload
//  2. [table.Parse] sniffs the delimiter and builds a typed [table.Table]
//  3. [table.Preview] cuts the table down to the configured window
//
// Exports go through [Service.RequestExport], which validates the requested
// format/compression pair before serializing.
//
//	svc := core.NewService(core.Options{PreviewRows: 10, PreviewCols: 10})
//	res := svc.Upload(ctx, core.Blob{Data: data, FileName: "calls.vcf.gz"})
//	if res.Error != nil {
//	    return res.Error
//	}
//	art, err := svc.RequestExport(ctx, res.Table, "parquet", "gzip")
//
// # Error Handling
//
// Pipeline failures are mapped to user-facing messages by [MapError]. Each
// category has a code for support reference:
//
//   - ARC001-ARC003: archive and codec failures
//   - FILE001-FILE005: upload and parse failures
//   - EXP001: unsupported export combinations
//   - UPL001-UPL005: limiter, session and request lifecycle
//
// # Audit Logging
//
// When a Postgres pool is configured, every upload and export is recorded by
// [AuditService]. Only metadata is stored: names, counts, codec choices and
// error codes. Table contents never leave the process.
package core
