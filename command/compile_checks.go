package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[SubmitRunMessage]      = (*SubmitRunCommand)(nil)
	_ gocmd.Commander[AbortRunMessage]       = (*AbortRunCommand)(nil)
	_ gocmd.Commander[RefreshSessionMessage] = (*RefreshSessionCommand)(nil)
	_ gocmd.Commander[CloseSessionMessage]   = (*CloseSessionCommand)(nil)
)
