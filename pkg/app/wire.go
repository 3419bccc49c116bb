package app

// Blank imports pull in every module so its init() registration runs.
// The config file decides which of these actually load.
import (
	_ "github.com/flemzord/phrasecue/internal/cron"
	_ "github.com/flemzord/phrasecue/internal/gateway"
	_ "github.com/flemzord/phrasecue/internal/pipeline"
	_ "github.com/flemzord/phrasecue/internal/quota"
	_ "github.com/flemzord/phrasecue/internal/stream"
	_ "github.com/flemzord/phrasecue/modules/entitlement/httpapi"
	_ "github.com/flemzord/phrasecue/modules/media/whisper"
	_ "github.com/flemzord/phrasecue/modules/media/ytdlp"
	_ "github.com/flemzord/phrasecue/modules/provider/anthropic"
	_ "github.com/flemzord/phrasecue/modules/store/memory"
	_ "github.com/flemzord/phrasecue/modules/store/sqlite"
)
