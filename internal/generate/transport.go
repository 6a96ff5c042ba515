package generate

// transportBaseName is the transport module's import name (no extension).
const transportBaseName = "http-client"

// transportDir is the directory the shared transport lands in.
const transportDir = "runtime"

// transportSource is the shared runtime base every generated client extends.
// It is emitted once per bundle, never per endpoint.
const transportSource = `// Auto-generated shared HTTP transport.
// Do not edit manually.

export type QueryStyle = 'repeat' | 'comma';

export interface HttpClientConfig {
  /** Base URL prepended to every request path. */
  baseUrl?: string;
  /** Headers sent with every request; per-call headers override them. */
  defaultHeaders?: Record<string, string>;
  /** Array serialization style for query parameters. Defaults to 'repeat'. */
  queryStyle?: QueryStyle;
  /** Fetch implementation override, for non-browser environments. */
  fetchImpl?: typeof fetch;
  /** Called with the prepared request before it is sent. */
  onRequest?: (request: { url: string; init: RequestInit }) => void | Promise<void>;
  /** Called with the raw response before it is decoded. */
  onResponse?: (response: Response) => void | Promise<void>;
}

export interface HttpRequestOptions {
  method: string;
  path: string;
  pathParams?: Record<string, unknown>;
  query?: Record<string, unknown>;
  headers?: Record<string, string>;
  body?: unknown;
  contentType?: string;
  signal?: AbortSignal;
}

export class HttpError extends Error {
  readonly status: number;
  readonly statusText: string;
  readonly body: unknown;

  constructor(status: number, statusText: string, body: unknown) {
    super('HTTP ' + status + ' ' + statusText);
    this.name = 'HttpError';
    this.status = status;
    this.statusText = statusText;
    this.body = body;
  }
}

export class HttpClientBase {
  protected readonly config: HttpClientConfig;

  constructor(config: HttpClientConfig = {}) {
    this.config = config;
  }

  protected async request(options: HttpRequestOptions): Promise<any> {
    const url = this.buildUrl(options);
    const headers = this.buildHeaders(options);
    const init: RequestInit = {
      method: options.method,
      headers,
      signal: options.signal,
    };

    const body = this.encodeBody(options, headers);
    if (body !== undefined && options.method !== 'GET' && options.method !== 'HEAD') {
      init.body = body;
    }

    if (this.config.onRequest) {
      await this.config.onRequest({ url, init });
    }

    const fetchImpl = this.config.fetchImpl ?? fetch;
    const response = await fetchImpl(url, init);

    if (this.config.onResponse) {
      await this.config.onResponse(response);
    }

    const decoded = await this.decodeBody(response, options.method);
    if (response.status < 200 || response.status > 299) {
      throw new HttpError(response.status, response.statusText, decoded);
    }
    return decoded;
  }

  private buildUrl(options: HttpRequestOptions): string {
    let path = options.path;
    for (const [name, value] of Object.entries(options.pathParams ?? {})) {
      path = path.split('{' + name + '}').join(encodeURIComponent(String(value)));
    }

    const query = this.serializeQuery(options.query ?? {});
    const base = this.config.baseUrl ? this.config.baseUrl.replace(/\/$/, '') : '';
    return base + path + (query ? '?' + query : '');
  }

  private serializeQuery(query: Record<string, unknown>): string {
    const style: QueryStyle = this.config.queryStyle ?? 'repeat';
    const parts: string[] = [];
    const push = (key: string, value: unknown) => {
      parts.push(encodeURIComponent(key) + '=' + encodeURIComponent(this.queryValue(value)));
    };

    for (const [key, value] of Object.entries(query)) {
      if (value === undefined || value === null) {
        continue;
      }
      if (Array.isArray(value)) {
        if (style === 'comma') {
          push(key, value.map((entry) => this.queryValue(entry)).join(','));
        } else {
          for (const entry of value) {
            push(key, entry);
          }
        }
      } else {
        push(key, value);
      }
    }
    return parts.join('&');
  }

  private queryValue(value: unknown): string {
    if (value !== null && typeof value === 'object') {
      return JSON.stringify(value);
    }
    return String(value);
  }

  private buildHeaders(options: HttpRequestOptions): Record<string, string> {
    return {
      ...(this.config.defaultHeaders ?? {}),
      ...(options.headers ?? {}),
    };
  }

  private encodeBody(options: HttpRequestOptions, headers: Record<string, string>): BodyInit | undefined {
    const body = options.body;
    if (body === undefined || body === null) {
      return undefined;
    }
    // Recognized native body types pass through untouched.
    if (
      typeof body === 'string' ||
      body instanceof Blob ||
      body instanceof ArrayBuffer ||
      body instanceof FormData ||
      body instanceof URLSearchParams
    ) {
      return body as BodyInit;
    }

    const contentType = options.contentType ?? headers['Content-Type'] ?? 'application/json';
    if (contentType.includes('application/x-www-form-urlencoded')) {
      const form = new URLSearchParams();
      for (const [key, value] of Object.entries(body as Record<string, unknown>)) {
        if (value !== undefined && value !== null) {
          form.set(key, String(value));
        }
      }
      headers['Content-Type'] = contentType;
      return form;
    }

    headers['Content-Type'] = contentType;
    return JSON.stringify(body);
  }

  private async decodeBody(response: Response, method: string): Promise<unknown> {
    if (response.status === 204 || method === 'HEAD') {
      return undefined;
    }
    const contentType = response.headers.get('content-type') ?? '';
    if (contentType.includes('json')) {
      return response.json();
    }
    if (contentType.startsWith('text/')) {
      return response.text();
    }
    return response.arrayBuffer();
  }
}
`
